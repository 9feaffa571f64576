package pn532

import (
	"context"
	"time"
)

// WakeSource is one bit of PowerDown's wake-source bitmap.
type WakeSource byte

const (
	WakeSourceI2C     WakeSource = 0x01
	WakeSourceGPIO    WakeSource = 0x02
	WakeSourceSPI     WakeSource = 0x04
	WakeSourceHSU     WakeSource = 0x08
	WakeSourceINT0    WakeSource = 0x10
	WakeSourceINT1    WakeSource = 0x20
	WakeSourceRF      WakeSource = 0x80
)

// WakeSources combines zero or more WakeSource bits into the single
// bitmap byte PowerDown's payload carries.
func WakeSources(sources ...WakeSource) byte {
	var b byte
	for _, s := range sources {
		b |= byte(s)
	}
	return b
}

// PowerDown puts the chip in deep sleep; it will not respond to any
// command until Channel.Wake is called. irq selects
// whether the PN532 asserts its IRQ line on a wake event.
func (c *Controller) PowerDown(ctx context.Context, wakeSources byte, irq bool, timeout time.Duration) error {
	payload := []byte{wakeSources}
	if irq {
		payload = append(payload, 0x01)
	}
	_, err := c.CommandResponse(ctx, CmdPowerDown, payload, timeout)
	return err
}
