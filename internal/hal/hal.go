// Package hal provides the narrow GPIO abstraction the PN532 driver needs:
// a reset line, a wake/power line, and an optional IRQ line used to gate
// read readiness on buffered transports. It intentionally does not cover
// I2C/SPI bus access — pkg/channel talks to those directly via periph.io.
package hal

import "fmt"

// PinMode is the direction a GPIO line is configured for.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// EdgeMode selects which transitions WatchEdge reports.
type EdgeMode int

const (
	EdgeNone EdgeMode = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// GPIOProvider is implemented by each board-specific GPIO backend.
type GPIOProvider interface {
	SetMode(pin int, mode PinMode) error
	DigitalRead(pin int) (bool, error)
	DigitalWrite(pin int, value bool) error
	// WatchEdge installs a callback fired on the given transition; used for
	// the PN532's IRQ line (active-low "data ready"). Pass EdgeNone pin
	// numbers that are never watched; a provider may no-op if it doesn't
	// support edge interrupts, in which case callers must poll DigitalRead.
	WatchEdge(pin int, edge EdgeMode, callback func(pin int, value bool)) error
	// Close releases every pin this provider has touched.
	Close() error
}

// ErrPinNotConfigured is returned by DigitalRead/DigitalWrite when called
// against a pin number SetMode was never called for.
var ErrPinNotConfigured = fmt.Errorf("hal: pin not configured")
