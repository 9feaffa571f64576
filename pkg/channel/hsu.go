package channel

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/edgenfc/pn532stack/internal/logger"
)

// wakePreamble is the PN532 HSU wake sequence: five 0x55 bytes sent before
// the first command after power-up or power-down, per the PN532 datasheet.
var wakePreamble = []byte{0x55, 0x55, 0x55, 0x55, 0x55}

// HSU is the high-speed UART Channel implementation, built over
// go.bug.st/serial. It is a Stream-mode channel: the frame codec reads it
// byte by byte.
type HSU struct {
	Base

	port serial.Port
}

// NewHSU opens the serial port at the given path and baud rate.
func NewHSU(portName string, baudRate int) (*HSU, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("hsu: open %s: %w", portName, err)
	}
	h := &HSU{port: port}
	h.Hooks = NoHooks{}
	return h, nil
}

func (h *HSU) Wake(ctx context.Context) error {
	return h.RawSend(ctx, wakePreamble, time.Second)
}

func (h *HSU) RawSend(ctx context.Context, buf []byte, timeout time.Duration) error {
	_ = h.port.SetWriteTimeout(timeout)
	n, err := h.port.Write(buf)
	if err != nil {
		logger.Get().Debug("hsu: write failed", "error", err)
		return fmt.Errorf("%w: %v", ErrHardware, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: short write (%d/%d)", ErrHardware, n, len(buf))
	}
	return nil
}

func (h *HSU) RawReceive(ctx context.Context, buf []byte, timeout time.Duration) error {
	if err := h.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("%w: %v", ErrHardware, err)
	}
	read := 0
	deadline := time.Now().Add(timeout)
	for read < len(buf) {
		if timeout > 0 && time.Now().After(deadline) {
			return ErrTimeout
		}
		n, err := h.port.Read(buf[read:])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHardware, err)
		}
		if n == 0 {
			return ErrTimeout
		}
		read += n
	}
	return nil
}

func (h *HSU) ReceiveMode() ReceiveMode { return Stream }

// Close releases the underlying serial port.
func (h *HSU) Close() error {
	return h.port.Close()
}
