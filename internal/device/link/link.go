package link

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/homebus/internal/component"
	"github.com/dshills/homebus/internal/event"
	"github.com/dshills/homebus/internal/hal"
	"github.com/dshills/homebus/internal/loop"
)

// State is the link state.
type State int

const (
	Idle State = iota
	Scanning
	Connecting
	Connected
	Disconnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Defaults.
const (
	DefaultPolling   = 3000 * time.Millisecond
	DefaultShortPoll = 1000 * time.Millisecond
)

// Candidate is a configured network.
type Candidate struct {
	SSID     string
	Password string

	// DHCP is true unless a static address is configured.
	DHCP bool

	IP      string
	Mask    string
	Gateway string
	DNS     string
}

// Options configures a link.
type Options struct {
	// Candidates lists the networks to join, in order of preference on ties.
	Candidates []Candidate

	// Hostname is the DHCP and advertised hostname.
	Hostname string

	// Polling is the status poll interval while connected.
	Polling time.Duration

	// ShortPoll is the status poll interval while connecting.
	ShortPoll time.Duration

	// Retry schedules attempts after a failure. Nil retries after ShortPoll.
	Retry RetryPolicy
}

// Validate checks the options for the component with the given topic.
func (o Options) Validate(owner string) error {
	if len(o.Candidates) == 0 {
		return event.NewConfigError(owner, "wifi", "at least one network is required")
	}
	for i, c := range o.Candidates {
		field := fmt.Sprintf("wifi[%d]", i)
		if c.SSID == "" {
			return event.NewConfigError(owner, field+".ssid", "is required")
		}
		if !c.DHCP && c.IP == "" {
			return event.NewConfigError(owner, field+".ip", "is required when dhcp is false")
		}
	}
	if o.Polling < 0 || o.ShortPoll < 0 {
		return event.NewConfigError(owner, "polling", "must not be negative")
	}
	if b, ok := o.Retry.(BackoffRetry); ok {
		if err := b.Validate(); err != nil {
			return &event.ConfigError{Component: owner, Field: "retry", Message: err.Error(), Err: err}
		}
	}
	return nil
}

// Advertiser announces the hostname on the local network, e.g. over mDNS.
type Advertiser interface {
	Advertise(hostname string) error
}

// AdvertiserFunc adapts a function to the Advertiser interface.
type AdvertiserFunc func(hostname string) error

// Advertise implements Advertiser.
func (f AdvertiserFunc) Advertise(hostname string) error {
	return f(hostname)
}

// Link is the WLAN link component.
type Link struct {
	*component.Component

	opts       Options
	station    hal.Station
	advertiser Advertiser
	poll       *loop.Timer

	mu         sync.Mutex
	state      State
	selected   *Candidate
	lastStatus hal.Status
	failures   int
}

// New builds a link. It does not touch the radio until started.
func New(cfg component.Config, opts Options, board hal.Board, adv Advertiser, env component.Env) (*Link, error) {
	if err := opts.Validate(cfg.Topic); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if env.Loop == nil {
		return nil, &event.ConfigError{Component: cfg.Topic, Field: "loop", Err: component.ErrNoLoop}
	}
	if opts.Polling == 0 {
		opts.Polling = DefaultPolling
	}
	if opts.ShortPoll == 0 {
		opts.ShortPoll = DefaultShortPoll
	}
	if opts.Retry == nil {
		opts.Retry = ConstantRetry{Interval: opts.ShortPoll}
	}

	station, err := board.Station()
	if err != nil {
		return nil, err
	}

	c, err := component.New(cfg, env)
	if err != nil {
		return nil, err
	}

	l := &Link{
		Component:  c,
		opts:       opts,
		station:    station,
		advertiser: adv,
		lastStatus: hal.StatusIdle,
	}
	l.poll = c.NewTimer(l.Poll)

	c.SetValueFunc(func() any { return l.station.Status().String() })
	c.MustRegister("connect", component.Do(l.Connect))
	c.MustRegister("network", component.Get(func() any {
		if n, ok := l.Selected(); ok {
			return n.SSID
		}
		return nil
	}))
	c.MustRegister("state", component.Get(func() any { return l.State().String() }))
	c.OnStart(l.Connect)

	return l, nil
}

// State returns the link state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Selected returns the network being joined or joined.
func (l *Link) Selected() (Candidate, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selected == nil {
		return Candidate{}, false
	}
	return *l.selected, true
}

// Failures returns the number of consecutive failed attempts.
func (l *Link) Failures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

// Connect (re)starts joining the best candidate. It always leaves exactly
// one poll or retry armed.
func (l *Link) Connect() {
	l.poll.Cancel()

	if err := l.station.Activate(true); err != nil {
		l.fail("activate", "", err)
		return
	}

	if l.station.IsConnected() {
		ssid := l.station.SSID()
		l.mu.Lock()
		l.selected = l.candidate(ssid)
		l.state = Connected
		l.failures = 0
		l.mu.Unlock()
		l.poll.Start(l.opts.Polling)
		return
	}

	l.setState(Scanning)
	networks, err := l.station.Scan()
	if err != nil {
		l.fail("scan", "", err)
		return
	}

	best, ok := Strongest(l.opts.Candidates, networks)
	if !ok {
		l.mu.Lock()
		l.selected = nil
		l.mu.Unlock()
		l.fail("scan", "", ErrNoCandidate)
		return
	}

	l.mu.Lock()
	l.selected = &best
	l.mu.Unlock()

	if l.opts.Hostname != "" {
		if err := l.station.SetHostname(l.opts.Hostname); err != nil {
			l.Logger().Warn("set hostname failed", "hostname", l.opts.Hostname, "error", err)
		}
	}
	if !best.DHCP {
		err := l.station.ConfigureStatic(hal.IPConfig{
			IP:      best.IP,
			Mask:    best.Mask,
			Gateway: best.Gateway,
			DNS:     best.DNS,
		})
		if err != nil {
			l.fail("configure", best.SSID, err)
			return
		}
	}
	if err := l.station.Connect(best.SSID, best.Password); err != nil {
		l.fail("connect", best.SSID, err)
		return
	}

	l.Logger().Info("joining network", "ssid", best.SSID)
	l.setState(Connecting)
	l.poll.Start(l.opts.ShortPoll)
}

// Poll checks the station once. It runs on the loop from the poll timer.
func (l *Link) Poll() {
	status := l.station.Status()

	l.mu.Lock()
	changed := status != l.lastStatus
	l.lastStatus = status
	l.mu.Unlock()

	if changed {
		l.Push(status.String())
	}

	if !l.station.IsConnected() {
		if status != hal.StatusConnecting {
			if status != hal.StatusIdle {
				ssid := ""
				if n, ok := l.Selected(); ok {
					ssid = n.SSID
				}
				l.Logger().Warn("link dropped", "ssid", ssid, "status", status.String())
			}
			l.Connect()
			return
		}
		l.setState(Connecting)
		l.poll.Start(l.opts.ShortPoll)
		return
	}

	l.mu.Lock()
	l.state = Connected
	l.failures = 0
	l.mu.Unlock()

	if l.advertiser != nil && l.opts.Hostname != "" {
		if err := l.advertiser.Advertise(l.opts.Hostname); err != nil {
			l.Logger().Warn("advertise failed", "hostname", l.opts.Hostname, "error", err)
		}
	}
	l.poll.Start(l.opts.Polling)
}

// fail records a failed attempt and arms the retry.
func (l *Link) fail(op, ssid string, err error) {
	l.mu.Lock()
	l.failures++
	attempt := l.failures
	l.state = Disconnected
	l.mu.Unlock()

	delay := l.opts.Retry.Delay(attempt)
	failure := &LinkFailure{Op: op, SSID: ssid, Attempt: attempt, Err: err}
	l.Logger().Warn("link failure", slog.Any("error", failure), slog.Duration("retry_in", delay))
	l.poll.Start(delay)
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
}

// candidate finds the configured network with ssid.
func (l *Link) candidate(ssid string) *Candidate {
	for i := range l.opts.Candidates {
		if l.opts.Candidates[i].SSID == ssid {
			c := l.opts.Candidates[i]
			return &c
		}
	}
	return nil
}

// Strongest picks the candidate with the strongest signal among networks.
// Ties go to the candidate listed first.
func Strongest(candidates []Candidate, networks []hal.Network) (Candidate, bool) {
	var (
		best  Candidate
		rssi  int
		found bool
	)
	for _, c := range candidates {
		for _, n := range networks {
			if n.SSID != c.SSID {
				continue
			}
			if !found || n.RSSI > rssi {
				best, rssi, found = c, n.RSSI, true
			}
		}
	}
	return best, found
}
