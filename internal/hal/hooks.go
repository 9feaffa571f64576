package hal

import (
	"time"

	"github.com/edgenfc/pn532stack/pkg/channel"
)

// irqPollInterval is how often ReceiveHooks polls the IRQ line while
// waiting for the PN532 to assert it (active-low "data ready").
const irqPollInterval = time.Millisecond

// irqWaitTimeout bounds how long OnReceivePrepare polls the IRQ line before
// giving up and letting the channel's own RawReceive timeout take over; a
// stuck IRQ line must never hang a receive indefinitely.
const irqWaitTimeout = 50 * time.Millisecond

// resetPulseWidth is how long PulseReset holds the PN532's reset line low.
const resetPulseWidth = 10 * time.Millisecond

// ReceiveHooks is a channel.Hooks that gates a receive on the PN532's IRQ
// line before the codec issues its RawReceive: the PN532 holds IRQ high
// while idle and pulls it low once a response is ready, so polling it here
// lets a buffered transport skip a status-register round trip on every
// loop iteration. OnSendPrepare/OnSendComplete are no-ops; nothing about
// sending a command depends on IRQ.
type ReceiveHooks struct {
	gpio   GPIOProvider
	irqPin int
}

// NewReceiveHooks configures irqPin as an input on gpio and returns a Hooks
// that waits for it to go low before each receive. irqPin < 0 disables
// gating entirely; OnReceivePrepare is then a no-op and gpio is never
// touched.
func NewReceiveHooks(gpio GPIOProvider, irqPin int) (*ReceiveHooks, error) {
	h := &ReceiveHooks{gpio: gpio, irqPin: irqPin}
	if irqPin < 0 {
		return h, nil
	}
	if err := gpio.SetMode(irqPin, Input); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *ReceiveHooks) OnSendPrepare()       {}
func (h *ReceiveHooks) OnSendComplete(error) {}

// OnReceivePrepare polls the IRQ line until it reads low or irqWaitTimeout
// elapses. It never surfaces an error: a timed-out wait just falls through
// to the transport's own RawReceive, which applies the caller's real
// timeout and returns channel.ErrTimeout if the PN532 truly has nothing
// ready.
func (h *ReceiveHooks) OnReceivePrepare() {
	if h.irqPin < 0 {
		return
	}
	deadline := time.Now().Add(irqWaitTimeout)
	for time.Now().Before(deadline) {
		asserted, err := h.gpio.DigitalRead(h.irqPin)
		if err != nil || !asserted {
			return
		}
		time.Sleep(irqPollInterval)
	}
}

func (h *ReceiveHooks) OnReceiveComplete(error) {}

var _ channel.Hooks = (*ReceiveHooks)(nil)

// PulseReset drives pin low then high, holding it low for resetPulseWidth —
// the PN532's documented hardware reset sequence. Call this once during
// startup, before the channel's Wake, when a reset pin is configured.
func PulseReset(gpio GPIOProvider, pin int) error {
	if err := gpio.SetMode(pin, Output); err != nil {
		return err
	}
	if err := gpio.DigitalWrite(pin, false); err != nil {
		return err
	}
	time.Sleep(resetPulseWidth)
	return gpio.DigitalWrite(pin, true)
}
