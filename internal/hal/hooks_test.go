package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReceiveHooksConfiguresIRQPinAsInput(t *testing.T) {
	gpio := NewMockGPIO()
	_, err := NewReceiveHooks(gpio, 17)
	require.NoError(t, err)

	// SetMode(Input) must have run; DigitalRead should now succeed instead
	// of returning ErrPinNotConfigured.
	_, err = gpio.DigitalRead(17)
	assert.NoError(t, err)
}

func TestNewReceiveHooksDisabledSkipsGPIO(t *testing.T) {
	gpio := NewMockGPIO()
	h, err := NewReceiveHooks(gpio, -1)
	require.NoError(t, err)

	// -1 never touches gpio, so the pin stays unconfigured.
	_, err = gpio.DigitalRead(17)
	assert.ErrorIs(t, err, ErrPinNotConfigured)

	// OnReceivePrepare must be a no-op and return promptly.
	done := make(chan struct{})
	go func() { h.OnReceivePrepare(); close(done) }()
	select {
	case <-done:
	case <-time.After(irqWaitTimeout):
		t.Fatal("OnReceivePrepare blocked despite disabled gating")
	}
}

func TestOnReceivePrepareReturnsOnceIRQAsserted(t *testing.T) {
	gpio := NewMockGPIO()
	h, err := NewReceiveHooks(gpio, 17)
	require.NoError(t, err)

	// Simulate the PN532 asserting IRQ (active-low) shortly after the
	// receive starts polling.
	gpio.SetPin(17, true)
	go func() {
		time.Sleep(3 * irqPollInterval)
		gpio.SetPin(17, false)
	}()

	start := time.Now()
	h.OnReceivePrepare()
	assert.Less(t, time.Since(start), irqWaitTimeout)
}

func TestOnReceivePrepareTimesOutWhenIRQNeverAsserts(t *testing.T) {
	gpio := NewMockGPIO()
	h, err := NewReceiveHooks(gpio, 17)
	require.NoError(t, err)
	gpio.SetPin(17, true)

	start := time.Now()
	h.OnReceivePrepare()
	assert.GreaterOrEqual(t, time.Since(start), irqWaitTimeout)
}

func TestPulseResetDrivesLowThenHigh(t *testing.T) {
	gpio := NewMockGPIO()
	var seen []bool
	_ = gpio.WatchEdge(5, EdgeBoth, func(pin int, value bool) { seen = append(seen, value) })

	require.NoError(t, PulseReset(gpio, 5))

	require.Len(t, seen, 2)
	assert.False(t, seen[0])
	assert.True(t, seen[1])

	final, err := gpio.DigitalRead(5)
	require.NoError(t, err)
	assert.True(t, final)
}
