package hal

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphGPIO implements GPIOProvider over periph.io's gpio conn/device
// registry (periph.io/x/conn/v3/gpio, periph.io/x/host/v3), the same
// conn/device split pkg/channel's I2C and SPI transports use. It owns only
// the handful of lines the PN532 driver needs (reset, wake, IRQ) — bus
// access for I2C/SPI transports lives in pkg/channel instead.
type PeriphGPIO struct {
	mu      sync.Mutex
	out     map[int]gpio.PinOut
	in      map[int]gpio.PinIn
	watched map[int]chan struct{}
}

// NewPeriphGPIO initializes the host's native GPIO drivers and returns a
// GPIOProvider backed by periph.io's pin registry.
func NewPeriphGPIO() (*PeriphGPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hal: host init: %w", err)
	}
	return &PeriphGPIO{
		out:     make(map[int]gpio.PinOut),
		in:      make(map[int]gpio.PinIn),
		watched: make(map[int]chan struct{}),
	}, nil
}

// byNumber resolves a GPIO pin number (e.g. BCM numbering on Raspberry Pi)
// to a registered periph.io pin, trying the "GPIO<n>" naming convention
// most periph.io host drivers register under.
func byNumber(pin int) gpio.PinIO {
	if p := gpioreg.ByName("GPIO" + strconv.Itoa(pin)); p != nil {
		return p
	}
	return gpioreg.ByName(strconv.Itoa(pin))
}

func (h *PeriphGPIO) SetMode(pin int, mode PinMode) error {
	p := byNumber(pin)
	if p == nil {
		return fmt.Errorf("hal: pin %d not found in periph.io registry", pin)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	switch mode {
	case Output:
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("hal: configure pin %d as output: %w", pin, err)
		}
		h.out[pin] = p
	case Input:
		if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return fmt.Errorf("hal: configure pin %d as input: %w", pin, err)
		}
		h.in[pin] = p
	default:
		return fmt.Errorf("hal: unsupported pin mode %v", mode)
	}
	return nil
}

func (h *PeriphGPIO) DigitalWrite(pin int, value bool) error {
	h.mu.Lock()
	p, ok := h.out[pin]
	h.mu.Unlock()
	if !ok {
		return ErrPinNotConfigured
	}
	level := gpio.Low
	if value {
		level = gpio.High
	}
	return p.Out(level)
}

func (h *PeriphGPIO) DigitalRead(pin int) (bool, error) {
	h.mu.Lock()
	p, ok := h.in[pin]
	h.mu.Unlock()
	if !ok {
		return false, ErrPinNotConfigured
	}
	return p.Read() == gpio.High, nil
}

// WatchEdge polls the pin in a goroutine and invokes callback on the
// requested transition. Not every periph.io host driver implements
// WaitForEdge for every pin (e.g. non-Linux hosts have no registered
// pins at all), so this uses the same portable polling strategy
// regardless of backend rather than relying on PinIn.WaitForEdge.
func (h *PeriphGPIO) WatchEdge(pin int, edge EdgeMode, callback func(pin int, value bool)) error {
	h.mu.Lock()
	p, ok := h.in[pin]
	if !ok {
		h.mu.Unlock()
		return ErrPinNotConfigured
	}
	if ch, exists := h.watched[pin]; exists {
		close(ch)
	}
	stop := make(chan struct{})
	h.watched[pin] = stop
	h.mu.Unlock()

	go func() {
		last := p.Read() == gpio.High
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
			}
			cur := p.Read() == gpio.High
			if cur != last {
				rising := cur && !last
				if (edge == EdgeRising && rising) || (edge == EdgeFalling && !rising) || edge == EdgeBoth {
					callback(pin, cur)
				}
				last = cur
			}
		}
	}()
	return nil
}

func (h *PeriphGPIO) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.watched {
		close(ch)
	}
	h.watched = map[int]chan struct{}{}
	h.out = map[int]gpio.PinOut{}
	h.in = map[int]gpio.PinIn{}
	return nil
}

// NewProvider opens the host's native GPIO backend. On a platform with no
// registered GPIO pins (anything but Linux-on-SBC hosts periph.io's host
// drivers target), SetMode calls will fail with "pin not found".
// cmd/nfcdemo exits when the reset pulse fails this way; when the IRQ line
// fails it logs a warning and continues without IRQ-gated receive.
func NewProvider() (GPIOProvider, error) {
	return NewPeriphGPIO()
}
