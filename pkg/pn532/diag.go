package pn532

import (
	"context"
	"fmt"
	"time"
)

// FirmwareVersion is the PN532's self-reported IC/firmware identity.
type FirmwareVersion struct {
	IC      byte
	Version byte
	Rev     byte
	Support byte // bit 0 ISO14443A, bit 1 ISO14443B, bit 2 ISO18092
}

// GetFirmwareVersion reads the chip's IC code and firmware version.
func (c *Controller) GetFirmwareVersion(ctx context.Context, timeout time.Duration) (FirmwareVersion, error) {
	reply, err := c.CommandResponse(ctx, CmdGetFirmwareVersion, nil, timeout)
	if err != nil {
		return FirmwareVersion{}, err
	}
	if len(reply) < 4 {
		return FirmwareVersion{}, fmt.Errorf("%w: short firmware version reply", ErrMalformed)
	}
	return FirmwareVersion{IC: reply[0], Version: reply[1], Rev: reply[2], Support: reply[3]}, nil
}

// GeneralStatus is the chip's RF field/target bookkeeping snapshot.
type GeneralStatus struct {
	Err        byte
	FieldOn    bool
	NumTargets byte
	SAMStatus  byte
}

// GetGeneralStatus reads the current RF field and target-tracking state.
func (c *Controller) GetGeneralStatus(ctx context.Context, timeout time.Duration) (GeneralStatus, error) {
	reply, err := c.CommandResponse(ctx, CmdGetGeneralStatus, nil, timeout)
	if err != nil {
		return GeneralStatus{}, err
	}
	if len(reply) < 3 {
		return GeneralStatus{}, fmt.Errorf("%w: short general status reply", ErrMalformed)
	}
	n := int(reply[2])
	st := GeneralStatus{Err: reply[0], FieldOn: reply[1] != 0, NumTargets: byte(n)}
	if idx := 3 + n*4; idx < len(reply) {
		st.SAMStatus = reply[idx]
	}
	return st, nil
}

// Diagnose runs one of the PN532's built-in self-test modes and returns the
// raw reply for the caller to interpret (the mode set is small and rarely
// used outside factory test, so no further typed parsing is offered).
func (c *Controller) Diagnose(ctx context.Context, mode byte, payload []byte, timeout time.Duration) ([]byte, error) {
	req := append([]byte{mode}, payload...)
	return c.CommandResponse(ctx, CmdDiagnose, req, timeout)
}
