package hal

import "sync"

// SimStation is a simulated WLAN station.
//
// Connect moves to StatusConnecting. Tests then decide the outcome with
// SetStatus; with AutoConnect the station gets an address immediately when
// the network is in range.
type SimStation struct {
	mu          sync.Mutex
	networks    []Network
	passwords   map[string]string
	active      bool
	status      Status
	ssid        string
	hostname    string
	static      *IPConfig
	autoConnect bool

	scans    int
	connects []string
}

// NewSimStation creates a station that sees networks.
func NewSimStation(networks ...Network) *SimStation {
	return &SimStation{
		networks:  networks,
		passwords: make(map[string]string),
	}
}

// SetAutoConnect makes Connect succeed at once for visible networks whose
// password matches (or that have no password registered).
func (s *SimStation) SetAutoConnect(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoConnect = on
}

// SetPassword registers the expected password for ssid.
func (s *SimStation) SetPassword(ssid, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwords[ssid] = password
}

// SetNetworks replaces the visible networks.
func (s *SimStation) SetNetworks(networks ...Network) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks = networks
}

// SetStatus forces the connection status.
func (s *SimStation) SetStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	if st != StatusGotIP && st != StatusConnecting {
		s.ssid = ""
	}
}

// Activate implements Station.
func (s *SimStation) Activate(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = on
	if !on {
		s.status = StatusIdle
		s.ssid = ""
	}
	return nil
}

// Active reports whether the radio is on.
func (s *SimStation) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// IsConnected implements Station.
func (s *SimStation) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.status == StatusGotIP
}

// Status implements Station.
func (s *SimStation) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Scan implements Station.
func (s *SimStation) Scan() ([]Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil, ErrClosed
	}
	s.scans++
	out := make([]Network, len(s.networks))
	copy(out, s.networks)
	return out, nil
}

// SetHostname implements Station.
func (s *SimStation) SetHostname(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hostname = name
	return nil
}

// Hostname returns the configured hostname.
func (s *SimStation) Hostname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostname
}

// ConfigureStatic implements Station.
func (s *SimStation) ConfigureStatic(cfg IPConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cfg
	s.static = &c
	return nil
}

// Static returns the static configuration, if one was applied.
func (s *SimStation) Static() (IPConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.static == nil {
		return IPConfig{}, false
	}
	return *s.static, true
}

// Connect implements Station.
func (s *SimStation) Connect(ssid, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrClosed
	}

	s.connects = append(s.connects, ssid)
	s.ssid = ssid
	s.status = StatusConnecting

	if s.autoConnect {
		s.status = StatusNoAPFound
		for _, n := range s.networks {
			if n.SSID != ssid {
				continue
			}
			if want, ok := s.passwords[ssid]; ok && want != password {
				s.status = StatusWrongPassword
			} else {
				s.status = StatusGotIP
			}
			break
		}
		if s.status != StatusGotIP {
			s.ssid = ""
		}
	}
	return nil
}

// SSID implements Station.
func (s *SimStation) SSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ssid
}

// Scans returns how many scans were performed.
func (s *SimStation) Scans() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans
}

// Connects returns the SSIDs passed to Connect, in order.
func (s *SimStation) Connects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.connects))
	copy(out, s.connects)
	return out
}
