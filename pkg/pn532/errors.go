// Package pn532 implements the frame codec and controller layer for the
// NXP PN532 contactless reader IC: encode/decode of its preamble+SOP+
// length+checksum wire frames, the command/ack/response dispatch, and the
// typed request/response wrappers over its command set.
package pn532

import (
	"errors"
	"fmt"
)

// Channel-level errors. These are returned by the codec and controller,
// distinct from the PN532 internal error codes carried inline in status
// bytes and from DESFire errors one layer up.
var (
	// ErrTimeout is returned when a bus timeout elapses before a frame
	// completes.
	ErrTimeout = errors.New("pn532: timeout")
	// ErrHardware is returned on an underlying transport driver failure.
	ErrHardware = errors.New("pn532: hardware error")
	// ErrMalformed is returned on a parse failure: bad preamble, length
	// mismatch, checksum mismatch, unexpected frame kind, or a reply whose
	// command code doesn't match the request.
	ErrMalformed = errors.New("pn532: malformed frame")
	// ErrAppError is returned when the PN532 sends an application-level
	// error frame (body == 0x7F).
	ErrAppError = errors.New("pn532: application error frame")
)

// InternalError is a PN532 internal error code, returned inline in a
// response's status byte. The 26 codes below are named, plus ErrNone; any
// other value has no constant and String renders it as reserved(0xNN). It
// is never raised as a Go error by the codec; callers read it off the
// Status that InitiatorDataExchange or InitiatorCommunicateThru returns
// when they care.
type InternalError byte

const (
	ErrNone             InternalError = 0x00
	ErrTimeoutRF        InternalError = 0x01 // timeout, no card detected
	ErrCRC              InternalError = 0x02
	ErrParity           InternalError = 0x03
	ErrBitCount         InternalError = 0x04 // erroneous bit count during anticollision
	ErrFraming          InternalError = 0x05 // framing error during Mifare op
	ErrBitCollision     InternalError = 0x06
	ErrBufferSize       InternalError = 0x07 // communication buffer too small
	ErrRFBufferOverflow InternalError = 0x09
	ErrRFTimeoutActive  InternalError = 0x0A // RF field not switched on in time
	ErrRFProtocol       InternalError = 0x0B
	ErrOverheat         InternalError = 0x0D
	ErrInternalBuffer   InternalError = 0x0E // internal buffer overflow
	ErrInvalidParameter InternalError = 0x10
	ErrDEPInvalidCmd    InternalError = 0x12 // DEP: command not supported
	ErrDEPBadDataFormat InternalError = 0x13
	ErrMifareAuth       InternalError = 0x14 // authentication error
	ErrUIDCheckByte     InternalError = 0x23
	ErrDEPInvalidState  InternalError = 0x25
	ErrOperationNotAllowed InternalError = 0x26
	ErrCommandContext   InternalError = 0x27
	ErrReleased         InternalError = 0x29 // target released
	ErrCardIDMismatch   InternalError = 0x2A
	ErrCardDisappeared  InternalError = 0x2B
	ErrNFCID3Mismatch   InternalError = 0x2C
	ErrOverCurrent      InternalError = 0x2D
	ErrNADMissing       InternalError = 0x2E
)

// String names the internal error code, falling back to a hex rendering
// for any reserved/unassigned value.
func (e InternalError) String() string {
	switch e {
	case ErrNone:
		return "none"
	case ErrTimeoutRF:
		return "timeout_rf"
	case ErrCRC:
		return "crc"
	case ErrParity:
		return "parity"
	case ErrBitCount:
		return "bit_count"
	case ErrFraming:
		return "framing"
	case ErrBitCollision:
		return "bit_collision"
	case ErrBufferSize:
		return "buffer_size"
	case ErrRFBufferOverflow:
		return "rf_buffer_overflow"
	case ErrRFTimeoutActive:
		return "rf_timeout_active"
	case ErrRFProtocol:
		return "rf_protocol"
	case ErrOverheat:
		return "overheat"
	case ErrInternalBuffer:
		return "internal_buffer"
	case ErrInvalidParameter:
		return "invalid_parameter"
	case ErrDEPInvalidCmd:
		return "dep_invalid_command"
	case ErrDEPBadDataFormat:
		return "dep_bad_data_format"
	case ErrMifareAuth:
		return "mifare_auth"
	case ErrUIDCheckByte:
		return "uid_check_byte"
	case ErrDEPInvalidState:
		return "dep_invalid_state"
	case ErrOperationNotAllowed:
		return "operation_not_allowed"
	case ErrCommandContext:
		return "command_context"
	case ErrReleased:
		return "target_released"
	case ErrCardIDMismatch:
		return "card_id_mismatch"
	case ErrCardDisappeared:
		return "card_disappeared"
	case ErrNFCID3Mismatch:
		return "nfcid3_mismatch"
	case ErrOverCurrent:
		return "over_current"
	case ErrNADMissing:
		return "nad_missing"
	default:
		return fmt.Sprintf("reserved(0x%02x)", byte(e))
	}
}

func (e InternalError) Error() string { return "pn532 internal error: " + e.String() }

// IsSuccess reports whether the status byte's internal error field
// indicates success.
func (e InternalError) IsSuccess() bool { return e == ErrNone }
