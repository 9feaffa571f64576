package channel

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// spiStatusRead is the PN532 SPI status-read byte: send it first on any
// transaction to ask the device whether a response is ready.
const spiStatusRead = 0x02

// spiDataWrite and spiDataRead are the PN532 SPI frame prefixes that
// precede a command frame or a response frame.
const (
	spiDataWrite = 0x01
	spiDataRead  = 0x03
)

// SPI is the SPI Channel implementation, built over periph.io's spi
// conn/device registry. Like I2C, the PN532 over SPI returns one complete
// frame per chip-select-scoped transaction, so this is a Buffered channel.
type SPI struct {
	Base

	port spi.PortCloser
	conn spi.Conn
}

// NewSPI opens the named SPI bus (empty string selects the first available
// bus) at the given clock speed, mode 0, 8 bits per word — the PN532's
// fixed SPI wire format.
func NewSPI(busName string, speedHz int64) (*SPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spi: host init: %w", err)
	}
	port, err := spireg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("spi: open bus %q: %w", busName, err)
	}
	conn, err := port.Connect(speedHz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("spi: connect: %w", err)
	}
	s := &SPI{port: port, conn: conn}
	s.Hooks = NoHooks{}
	return s, nil
}

// Wake issues a status-read transaction. Asleep, the PN532 doesn't drive
// MISO and the read comes back all zero; awake, bit 0 of the second
// returned byte (the one clocked out after the command byte) is the
// data-ready flag. Either way the chip-select edge
// this produces is what rouses the device from power-down.
func (s *SPI) Wake(ctx context.Context) error {
	w := []byte{spiStatusRead, 0x00}
	r := make([]byte, 2)
	if err := s.conn.Tx(w, r); err != nil {
		return fmt.Errorf("%w: %v", ErrHardware, err)
	}
	return nil
}

func (s *SPI) RawSend(ctx context.Context, buf []byte, timeout time.Duration) error {
	w := make([]byte, len(buf)+1)
	w[0] = spiDataWrite
	copy(w[1:], buf)
	if err := s.conn.Tx(w, make([]byte, len(w))); err != nil {
		return fmt.Errorf("%w: %v", ErrHardware, err)
	}
	return nil
}

// RawReceive polls the status-read byte until the ready bit is set, then
// issues the data-read transaction to fill buf.
func (s *SPI) RawReceive(ctx context.Context, buf []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		status := make([]byte, 2)
		if err := s.conn.Tx([]byte{spiStatusRead, 0x00}, status); err != nil {
			return fmt.Errorf("%w: %v", ErrHardware, err)
		}
		if status[1]&0x01 != 0 {
			break
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}

	w := make([]byte, len(buf)+1)
	w[0] = spiDataRead
	r := make([]byte, len(buf)+1)
	if err := s.conn.Tx(w, r); err != nil {
		return fmt.Errorf("%w: %v", ErrHardware, err)
	}
	copy(buf, r[1:])
	return nil
}

func (s *SPI) ReceiveMode() ReceiveMode { return Buffered }

// Close releases the underlying SPI port handle.
func (s *SPI) Close() error {
	return s.port.Close()
}
