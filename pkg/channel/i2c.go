package channel

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// I2C is the I2C Channel implementation, built over periph.io's i2c
// conn/device registry. The PN532 has no notion of partial I2C reads: a
// read transaction returns one complete response frame (or a one-byte
// "not ready" status if the response isn't available yet), so this
// transport is Buffered rather than Stream.
type I2C struct {
	Base

	dev  *i2c.Dev
	bus  i2c.BusCloser
	addr uint16
}

// NewI2C opens the named I2C bus (empty string selects the first available
// bus) and binds to the PN532's fixed 7-bit address.
func NewI2C(busName string, addr uint16) (*I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2c: host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("i2c: open bus %q: %w", busName, err)
	}
	c := &I2C{
		dev:  &i2c.Dev{Addr: addr, Bus: bus},
		bus:  bus,
		addr: addr,
	}
	c.Hooks = NoHooks{}
	return c, nil
}

// Wake asserts the PN532's I2C address with an empty write, which is the
// transport's equivalent of the HSU wake preamble: the device answers NACK
// while asleep and ACK once it has woken from power-down.
func (c *I2C) Wake(ctx context.Context) error {
	return c.dev.Tx(nil, nil)
}

func (c *I2C) RawSend(ctx context.Context, buf []byte, timeout time.Duration) error {
	if err := c.dev.Tx(buf, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrHardware, err)
	}
	return nil
}

// RawReceive reads one complete buffer's worth of response in a single I2C
// transaction. The PN532 prefixes every I2C read with a one-byte status
// (bit 0 set once the response is ready), which stays at buf[0];
// RawReceive repeats the read every millisecond until that bit is set or
// timeout elapses.
func (c *I2C) RawReceive(ctx context.Context, buf []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := c.dev.Tx(nil, buf); err != nil {
			return fmt.Errorf("%w: %v", ErrHardware, err)
		}
		if len(buf) > 0 && buf[0]&0x01 != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
}

func (c *I2C) ReceiveMode() ReceiveMode { return Buffered }

// Close releases the underlying I2C bus handle.
func (c *I2C) Close() error {
	return c.bus.Close()
}
