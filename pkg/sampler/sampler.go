package sampler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/softactuator/pdlogger/pkg/cal"
	"github.com/softactuator/pdlogger/pkg/config"
	"github.com/softactuator/pdlogger/pkg/link"
	"github.com/softactuator/pdlogger/pkg/series"
)

// MaxRate is the upper bound on the sample rate in Hz.
const MaxRate = 1000

var (
	ErrInvalidRate    = errors.New("invalid sample rate")
	ErrNotConnected   = errors.New("not connected")
	ErrAlreadyRunning = errors.New("already running")
)

// Sampler drives acquisition at a fixed rate on its own goroutine: each
// tick it reads both channels through the link, converts them through the
// calibrator, and appends one record to the store. All link I/O happens on
// the sampling goroutine, never on the caller's.
type Sampler struct {
	link  link.Link
	cal   *cal.Calibrator
	store *series.Store

	averageReads int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	epoch   time.Time // session time zero, set when starting on an empty store

	cbMu      sync.RWMutex
	callbacks []func(series.Record)
}

// New creates a Sampler over the given link, calibrator and store. cfg
// may be nil; it only contributes the per-tick read averaging count.
func New(cfg *config.AcquisitionConfig, lnk link.Link, calib *cal.Calibrator, store *series.Store) *Sampler {
	s := &Sampler{
		link:  lnk,
		cal:   calib,
		store: store,
	}
	if cfg != nil {
		s.averageReads = cfg.AverageReads
	}
	return s
}

// Start begins sampling at the given rate in Hz. Fails with ErrInvalidRate
// unless 0 < rate <= MaxRate, ErrNotConnected if the link has no open
// handle, and ErrAlreadyRunning if a run is active.
//
// If the store already holds records, Start resumes the same session: the
// epoch of the first Start is kept, so timestamps jump by the stopped
// duration, and the first resumed record is flagged as a discontinuity. A
// new session requires clearing the store before Start.
func (s *Sampler) Start(rate float64) error {
	if rate <= 0 || rate > MaxRate {
		return ErrInvalidRate
	}
	if !s.link.IsOpen() {
		return ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	start := time.Now()
	if s.store.Len() == 0 {
		s.epoch = start
	} else {
		s.store.MarkDiscontinuity()
		if s.epoch.IsZero() {
			// Store was populated before this sampler existed; place the
			// epoch so timestamps continue past the last record.
			last, _ := s.store.Last()
			s.epoch = start.Add(-time.Duration((last.Time + 1/rate) * float64(time.Second)))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.cancel = cancel
	s.done = done
	s.running = true

	go s.run(ctx, done, rate, start, s.epoch)

	return nil
}

// Stop halts the sampling clock and waits for the goroutine to exit. A
// record whose reads already completed is still appended. Already-appended
// records remain in the store. Safe to call when not running.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Running reports whether a run is active.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// OnRecord registers a callback invoked from the sampling goroutine after
// each record is appended. Callbacks should return quickly.
func (s *Sampler) OnRecord(cb func(series.Record)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// run is the acquisition loop. Tick n fires at start+n*period, an absolute
// schedule measured from the run start, so scheduling error never
// accumulates. Timestamps come from the schedule, not the wall clock at
// read time, so a session's rows are reproducible.
func (s *Sampler) run(ctx context.Context, done chan struct{}, rate float64, start, epoch time.Time) {
	defer close(done)

	period := time.Duration(float64(time.Second) / rate)

	for n := 0; ; n++ {
		next := start.Add(time.Duration(n) * period)
		if d := time.Until(next); d > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d):
			}
		} else {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}

		rec := series.Record{
			Time:         next.Sub(epoch).Seconds(),
			Pressure:     s.readField(link.Pressure),
			Displacement: s.readField(link.Displacement),
		}

		s.store.Append(rec)
		s.notify(rec)
	}
}

// readField reads one channel with a single retry on transient failures
// and converts the voltage. A failed channel comes back invalid; the tick
// still produces a record, so one bad read never halts the run.
func (s *Sampler) readField(ch link.Channel) series.Field {
	v, err := s.readVoltage(ch)
	if err != nil && transient(err) {
		v, err = s.readVoltage(ch)
	}
	if err != nil {
		log.Printf("sampler: %s read failed: %v", ch, err)
		return series.Field{}
	}

	return series.Field{Value: s.cal.Convert(ch, v).Value, Valid: true}
}

// readVoltage reads the channel once, or averages averageReads consecutive
// reads when configured. Any failed read fails the whole average.
func (s *Sampler) readVoltage(ch link.Channel) (float64, error) {
	n := s.averageReads
	if n <= 1 {
		return s.link.ReadVoltage(ch)
	}

	var sum float64
	for range n {
		v, err := s.link.ReadVoltage(ch)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(n), nil
}

func transient(err error) bool {
	return errors.Is(err, link.ErrTimeout) || errors.Is(err, link.ErrMalformedResponse)
}

func (s *Sampler) notify(rec series.Record) {
	s.cbMu.RLock()
	callbacks := make([]func(series.Record), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(rec)
		}
	}
}
