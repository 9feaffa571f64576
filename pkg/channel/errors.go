package channel

import "errors"

// ErrTimeout is returned by RawSend/RawReceive when the caller-supplied
// timeout elapses before the transfer completes.
var ErrTimeout = errors.New("channel: timeout")

// ErrHardware is returned by RawSend/RawReceive on an underlying driver
// failure (bus NACK, device not present, I/O error from the OS).
var ErrHardware = errors.New("channel: hardware error")
