package pn532

import (
	"context"
	"time"
)

// SAMMode selects the PN532's companion Secure Access Module behavior.
type SAMMode byte

const (
	SAMNormal       SAMMode = 0x01
	SAMVirtualCard  SAMMode = 0x02
	SAMWiredCard    SAMMode = 0x03
	SAMDualCard     SAMMode = 0x04
)

// SAMConfiguration is mandatory before NFC operations; mode SAMNormal
// disables the companion SAM chip.
func (c *Controller) SAMConfiguration(ctx context.Context, mode SAMMode, timeout time.Duration, irqPin bool) error {
	payload := []byte{byte(mode), byte(timeout / (50 * time.Millisecond)), boolByte(irqPin)}
	_, err := c.CommandResponse(ctx, CmdSAMConfiguration, payload, DefaultTimeout)
	return err
}

func boolByte(b bool) byte {
	if b {
		return 0x01
	}
	return 0x00
}

// RFConfigItem is the tagged union of RF-configuration sub-items PN532's
// RFConfiguration command accepts (analog register blocks per modulation,
// timings, retry counts).
type RFConfigItem byte

const (
	RFConfigItemRFField      RFConfigItem = 0x01
	RFConfigItemTimings      RFConfigItem = 0x02
	RFConfigItemMaxRetryCOM  RFConfigItem = 0x04
	RFConfigItemMaxRetries   RFConfigItem = 0x05
	RFConfigItemAnalog106A   RFConfigItem = 0x0A
	RFConfigItemAnalog212_424F RFConfigItem = 0x0B
	RFConfigItemAnalog212_424_848I RFConfigItem = 0x0C
	RFConfigItemAnalog106B   RFConfigItem = 0x0D
)

// RFConfigFieldOn sets the RF field on/off with the auto-RFCA behavior.
type RFConfigFieldOn struct {
	AutoRFCA bool
	FieldOn  bool
}

func (f RFConfigFieldOn) encode() []byte {
	var b byte
	if f.AutoRFCA {
		b |= 0x02
	}
	if f.FieldOn {
		b |= 0x01
	}
	return []byte{byte(RFConfigItemRFField), b}
}

// RFConfigTimings sets the RF-detection and DEP timeouts.
type RFConfigTimings struct {
	RFUTimeout byte // round-up timeout exponent
	ATRResTimeout byte
}

func (t RFConfigTimings) encode() []byte {
	return []byte{byte(RFConfigItemTimings), 0x0B, t.RFUTimeout, t.ATRResTimeout}
}

// RFConfigMaxRetries sets ATR, PSL, and passive-activation retry counts;
// 0xFF means "retry forever".
type RFConfigMaxRetries struct {
	ATR byte
	PSL byte
	Passive byte
}

func (m RFConfigMaxRetries) encode() []byte {
	return []byte{byte(RFConfigItemMaxRetries), m.ATR, m.PSL, m.Passive}
}

// RFConfigAnalogSettings106A carries the six analog register values the
// PN532 uses for 106 kbps type A modulation/demodulation.
type RFConfigAnalogSettings106A struct {
	RFCfg, GsNOn, CWGsP, ModGsP, RFU, GsNOff byte
}

func (a RFConfigAnalogSettings106A) encode() []byte {
	return []byte{byte(RFConfigItemAnalog106A), a.RFCfg, a.GsNOn, a.CWGsP, a.ModGsP, a.RFU, a.GsNOff}
}

// rfConfigEncoder is satisfied by every RFConfig* sub-item type.
type rfConfigEncoder interface {
	encode() []byte
}

// RFConfiguration writes one RF-configuration sub-item into the PN532's
// configuration.
func (c *Controller) RFConfiguration(ctx context.Context, item rfConfigEncoder, timeout time.Duration) error {
	_, err := c.CommandResponse(ctx, CmdRFConfiguration, item.encode(), timeout)
	return err
}
