package hal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimBoard_Pins(t *testing.T) {
	b := NewSimBoard(WithPins(4))

	in, err := b.Input(1, PullUp)
	require.NoError(t, err)
	assert.Equal(t, High, in.Read(), "pulled-up input idles high")

	_, err = b.Output(1)
	var hwErr *HardwareInitError
	require.True(t, errors.As(err, &hwErr))
	assert.ErrorIs(t, err, ErrPinInUse)
	assert.Equal(t, 1, hwErr.Pin)

	_, err = b.Input(9, PullNone)
	assert.ErrorIs(t, err, ErrNoSuchPin)

	require.NoError(t, in.Close())
	out, err := b.Output(1)
	require.NoError(t, err, "closed pins can be claimed again")
	out.Set(High)
	assert.Equal(t, High, out.Get())
}

func TestSimInput_Drive(t *testing.T) {
	b := NewSimBoard()
	pin, err := b.Input(0, PullNone)
	require.NoError(t, err)
	in, ok := b.SimInputAt(0)
	require.True(t, ok)

	var edges []Level
	pin.OnEdge(func(l Level) { edges = append(edges, l) })

	in.Drive(High)
	in.Drive(High) // no change, no edge
	in.Drive(Low)

	assert.Equal(t, []Level{High, Low}, edges)
}

func TestSimBoard_MissingResources(t *testing.T) {
	b := NewSimBoard()

	_, err := b.Station()
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = b.Sensor("dht22", nil)
	var hwErr *HardwareInitError
	require.True(t, errors.As(err, &hwErr))
	assert.Equal(t, "sensor", hwErr.Resource)
	assert.Contains(t, err.Error(), "dht22")
}

func TestSimStation_AutoConnect(t *testing.T) {
	st := NewSimStation(Network{SSID: "home", RSSI: -50})
	st.SetAutoConnect(true)
	st.SetPassword("home", "secret")

	require.ErrorIs(t, st.Connect("home", "x"), ErrClosed, "inactive radio")
	require.NoError(t, st.Activate(true))

	require.NoError(t, st.Connect("home", "wrong"))
	assert.Equal(t, StatusWrongPassword, st.Status())
	assert.False(t, st.IsConnected())

	require.NoError(t, st.Connect("home", "secret"))
	assert.True(t, st.IsConnected())
	assert.Equal(t, "home", st.SSID())

	require.NoError(t, st.Connect("away", ""))
	assert.Equal(t, StatusNoAPFound, st.Status())
	assert.Equal(t, []string{"home", "home", "away"}, st.Connects())
}

func TestLevelAndStatus(t *testing.T) {
	assert.Equal(t, High, Low.Not())
	assert.Equal(t, "1", High.String())
	assert.Equal(t, "got-ip", StatusGotIP.String())
	assert.Equal(t, "Status(42)", Status(42).String())
}
