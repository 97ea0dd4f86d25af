package link

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the rate the logger firmware configures its UART for.
	DefaultBaudRate = 9600
	// DefaultReadTimeout bounds one request/response exchange.
	DefaultReadTimeout = 300 * time.Millisecond
)

// Serial is the Link implementation over a real serial port.
// One exchange at a time: the mutex serializes request/response pairs so a
// response can never be attributed to the wrong request.
type Serial struct {
	baudRate int
	timeout  time.Duration

	mu   sync.Mutex
	conn serial.Port
	name string
}

// NewSerial creates a Serial link with the given baud rate and per-exchange
// timeout. Zero values select the defaults.
func NewSerial(baudRate int, timeout time.Duration) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}

	return &Serial{
		baudRate: baudRate,
		timeout:  timeout,
	}
}

// Open opens the named serial port. Fails with ErrAlreadyOpen if a handle is
// active and ErrPortUnavailable if the port cannot be opened.
func (s *Serial) Open(port string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, s.name)
	}

	mode := &serial.Mode{
		BaudRate: s.baudRate,
	}

	conn, err := serial.Open(port, mode)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPortUnavailable, port, err)
	}

	if err := conn.SetReadTimeout(s.timeout); err != nil {
		conn.Close()
		return fmt.Errorf("%w: %s: %v", ErrPortUnavailable, port, err)
	}

	s.conn = conn
	s.name = port

	return nil
}

// Close releases the port. Idempotent; safe to call when already closed.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil
	s.name = ""

	return err
}

// IsOpen returns whether a port handle is currently active.
func (s *Serial) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// ReadVoltage sends the channel's request byte and parses the text float
// response. Fails with ErrNotOpen, ErrTimeout or ErrMalformedResponse.
func (s *Serial) ReadVoltage(ch Channel) (float64, error) {
	cmd, err := ch.Command()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return 0, ErrNotOpen
	}

	// Drop any stale bytes so a late response to a previous request cannot
	// be misread as this one.
	if err := s.conn.ResetInputBuffer(); err != nil {
		return 0, fmt.Errorf("reset input buffer: %w", err)
	}

	if _, err := s.conn.Write([]byte{cmd}); err != nil {
		return 0, fmt.Errorf("write command %q: %w", cmd, err)
	}
	if err := s.conn.Drain(); err != nil {
		return 0, fmt.Errorf("drain: %w", err)
	}

	line, err := s.readLine()
	if err != nil {
		return 0, err
	}

	return parseVoltage(line)
}

// readLine reads a line delimited response byte by byte. The port read
// timeout bounds each byte; the overall deadline bounds a slow-dripping
// response.
func (s *Serial) readLine() (string, error) {
	deadline := time.Now().Add(s.timeout)
	buf := make([]byte, 0, 16)
	one := make([]byte, 1)

	for {
		n, err := s.conn.Read(one)
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		if n == 0 {
			// Port read timeout expired with no byte.
			return "", fmt.Errorf("%w: no response after %v", ErrTimeout, s.timeout)
		}

		if one[0] == '\n' {
			return string(buf), nil
		}
		if one[0] != '\r' {
			buf = append(buf, one[0])
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: partial response %q", ErrTimeout, buf)
		}
	}
}

// parseVoltage parses a response line as a floating-point voltage.
func parseVoltage(line string) (float64, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedResponse, line)
	}

	return v, nil
}
