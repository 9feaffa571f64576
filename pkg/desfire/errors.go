package desfire

import (
	"errors"
	"fmt"
)

// Status is a DESFire response status byte.
type Status byte

const (
	StatusSuccess         Status = 0x00
	StatusNoChanges       Status = 0x0C
	StatusOutOfEEPROM     Status = 0x0E
	StatusIllegalCommand  Status = 0x1C
	StatusIntegrityError  Status = 0x1E
	StatusNoSuchKey       Status = 0x40
	StatusLengthError     Status = 0x7E
	StatusPermissionDenied Status = 0x9D
	StatusParameterError  Status = 0x9E
	StatusApplicationNotFound Status = 0xA0
	StatusDuplicateError  Status = 0xDE
	StatusFileNotFound    Status = 0xF0
	StatusFileIntegrityError Status = 0xF1
	StatusAdditionalFrame Status = 0xAF
	StatusAuthenticationError Status = 0xAE
	StatusBoundaryError   Status = 0xBE
	StatusCommandAborted  Status = 0xCA
	StatusCountError      Status = 0xCE
	StatusPICCIntegrityError Status = 0xC1
)

// IsSuccess reports whether s is success or the no-changes idempotent
// success: 0x0C is treated as success everywhere, including
// change-file-settings.
func (s Status) IsSuccess() bool { return s == StatusSuccess || s == StatusNoChanges }

// IsAdditionalFrame reports whether the card signals more chained data
// follows.
func (s Status) IsAdditionalFrame() bool { return s == StatusAdditionalFrame }

// statusNames gives each known status byte its error label.
var statusNames = map[Status]string{
	StatusOutOfEEPROM:         "out_of_eeprom",
	StatusIllegalCommand:      "illegal_command",
	StatusIntegrityError:      "integrity_error",
	StatusNoSuchKey:           "no_such_key",
	StatusLengthError:         "length_error",
	StatusPermissionDenied:    "permission_denied",
	StatusParameterError:      "parameter_error",
	StatusApplicationNotFound: "application_not_found",
	StatusDuplicateError:      "duplicate_error",
	StatusFileNotFound:        "file_not_found",
	StatusFileIntegrityError:  "file_integrity_error",
	StatusAuthenticationError: "authentication_error",
	StatusBoundaryError:       "boundary_error",
	StatusCommandAborted:      "command_aborted",
	StatusCountError:          "count_error",
	StatusPICCIntegrityError:  "picc_integrity_error",
}

// StatusError wraps a non-success DESFire status byte as a Go error.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	if name, ok := statusNames[e.Status]; ok {
		return fmt.Sprintf("desfire: %s (status 0x%02x)", name, byte(e.Status))
	}
	return fmt.Sprintf("desfire: unknown status 0x%02x", byte(e.Status))
}

// AsError converts a status byte into a Go error, or nil on success
// (every status maps to exactly one of
// success/no_change/additional_frame/named error).
func (s Status) AsError() error {
	if s.IsSuccess() || s.IsAdditionalFrame() {
		return nil
	}
	return &StatusError{Status: s}
}

// Synthesized error families: these are never status bytes from the
// card, but raised by this layer itself.
var (
	// ErrControllerError wraps an upstream pn532/channel failure.
	ErrControllerError = errors.New("desfire: controller error")
	// ErrMalformed is returned on a DESFire-side parse failure.
	ErrMalformed = errors.New("desfire: malformed response")
	// ErrCrypto is returned on a MAC/CMAC/CRC/block-size mismatch, or a
	// mismatched random response during authentication.
	ErrCrypto = errors.New("desfire: crypto error")
	// ErrNotAuthenticated is returned when an operation requiring an
	// active session is attempted without one.
	ErrNotAuthenticated = errors.New("desfire: not authenticated")
)
