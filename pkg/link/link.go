package link

import (
	"errors"
	"fmt"

	"go.bug.st/serial/enumerator"
)

// Channel identifies one of the two measured quantities. The channel
// determines both the request command byte and which calibration applies.
type Channel int

const (
	Pressure Channel = iota
	Displacement
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case Pressure:
		return "pressure"
	case Displacement:
		return "displacement"
	}
	return "unknown"
}

// Command returns the single-byte request code the MCU understands:
// 'a' requests the pressure voltage, 'b' the displacement voltage.
func (c Channel) Command() (byte, error) {
	switch c {
	case Pressure:
		return 'a', nil
	case Displacement:
		return 'b', nil
	}
	return 0, fmt.Errorf("unknown channel %d", int(c))
}

// Channels lists all channels in acquisition order.
var Channels = []Channel{Pressure, Displacement}

// Typed failures of the link layer. Call sites wrap these with context;
// callers match with errors.Is.
var (
	ErrPortUnavailable   = errors.New("port unavailable")
	ErrAlreadyOpen       = errors.New("already open")
	ErrNotOpen           = errors.New("not open")
	ErrTimeout           = errors.New("read timeout")
	ErrMalformedResponse = errors.New("malformed response")
)

// Link defines the interface to the MCU connection (real or mocked).
// ReadVoltage performs one request/response exchange and returns within a
// bounded time. The link never retries; retry policy belongs to the sampler.
type Link interface {
	Open(port string) error
	Close() error
	ReadVoltage(ch Channel) (float64, error)
	IsOpen() bool
}

// Ensure Serial implements Link.
var _ Link = (*Serial)(nil)

// Ensure Mock implements Link.
var _ Link = (*Mock)(nil)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns the available serial ports. USB devices get their product
// string as the description so the operator can tell two adapters apart.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		result = append(result, Port{
			Name:        d.Name,
			Description: portDescription(d),
		})
	}

	return result, nil
}

// portDescription derives a display string from the enumerated details.
// Non-USB ports have nothing beyond their name to show.
func portDescription(d *enumerator.PortDetails) string {
	if !d.IsUSB {
		return d.Name
	}
	if d.Product != "" {
		return d.Product
	}
	return "USB " + d.VID + ":" + d.PID
}
