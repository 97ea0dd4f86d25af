package link

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/softactuator/pdlogger/pkg/config"
)

// Mock simulates the logger MCU for testing and development.
// By default each channel produces its configured baseline voltage with a
// slow wander plus noise. Tests can pin a channel to a constant voltage with
// SetVoltage and inject per-call failures with FailNext.
type Mock struct {
	cfg *config.MockConfig

	mu       sync.Mutex
	open     bool
	start    time.Time
	pinned   map[Channel]float64
	failures map[Channel][]error
	reads    map[Channel]int
}

// NewMock creates a new mocked link instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			PressureVolts:     2.5,
			DisplacementVolts: 1.8,
			Amplitude:         0.5,
			NoiseLevel:        0.002,
		}
	}

	return &Mock{
		cfg:      cfg,
		pinned:   make(map[Channel]float64),
		failures: make(map[Channel][]error),
		reads:    make(map[Channel]int),
	}
}

// Open simulates opening the port. The port name is ignored.
func (m *Mock) Open(port string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		return ErrAlreadyOpen
	}

	m.open = true
	m.start = time.Now()

	return nil
}

// Close stops the mocked link. Idempotent.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.open = false

	return nil
}

// IsOpen returns whether the mocked link is currently open.
func (m *Mock) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// ReadVoltage returns the simulated voltage for the channel, or the next
// injected failure if one is queued.
func (m *Mock) ReadVoltage(ch Channel) (float64, error) {
	if _, err := ch.Command(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return 0, ErrNotOpen
	}

	m.reads[ch]++

	if queue := m.failures[ch]; len(queue) > 0 {
		err := queue[0]
		m.failures[ch] = queue[1:]
		return 0, err
	}

	if v, ok := m.pinned[ch]; ok {
		return v, nil
	}

	return m.simulate(ch), nil
}

// SetVoltage pins a channel to a constant voltage.
func (m *Mock) SetVoltage(ch Channel, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[ch] = v
}

// FailNext queues an error to be returned by the next ReadVoltage call for
// the channel. Queued failures are consumed in order, before pinned or
// simulated values.
func (m *Mock) FailNext(ch Channel, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[ch] = append(m.failures[ch], err)
}

// Reads returns how many times the channel has been read since Open.
func (m *Mock) Reads(ch Channel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[ch]
}

// simulate produces the channel's baseline voltage with a slow sine wander
// and a small deterministic noise term. Caller holds the lock.
func (m *Mock) simulate(ch Channel) float64 {
	baseline := m.cfg.PressureVolts
	if ch == Displacement {
		baseline = m.cfg.DisplacementVolts
	}

	elapsed := time.Since(m.start).Seconds()

	// 20 second wander period, channel phase-shifted so the two traces
	// don't overlap on the scope.
	phase := 0.0
	if ch == Displacement {
		phase = math.Pi / 2
	}
	wander := m.cfg.Amplitude * math.Sin(2*math.Pi*elapsed/20+phase)

	noise := (math.Sin(elapsed*997) + math.Cos(elapsed*1301)) * m.cfg.NoiseLevel * 0.5

	return baseline + wander + noise
}

// String describes the mock for connection status display.
func (m *Mock) String() string {
	return fmt.Sprintf("mock(p=%.2fV d=%.2fV)", m.cfg.PressureVolts, m.cfg.DisplacementVolts)
}
