package series

import "sync"

// Field is one channel's value in a record. Valid is false when both read
// attempts for the channel failed on that tick; the record is still
// appended so the series has no gaps.
type Field struct {
	Value float64
	Valid bool
}

// Record is one acquisition tick's aligned pair of channel values. Time is
// elapsed seconds since the session started. Discont marks the first record
// appended after a Stop/Start resume, where the timestamp jumps.
type Record struct {
	Time         float64
	Pressure     Field
	Displacement Field
	Discont      bool
}

// Store is the append-only buffer of records for the active session: a
// single writer (the sampler's tick handler) and any number of concurrent
// readers. Records are cleared only on an explicit Clear, never on Stop, so
// a session can still be exported after the run ends.
type Store struct {
	mu      sync.RWMutex
	records []Record
	discont bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		records: make([]Record, 0, 1024),
	}
}

// Append adds a record to the session. Called only by the sampler's tick
// handler. If a discontinuity is armed, the record is flagged and the arm
// cleared.
func (s *Store) Append(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.discont {
		r.Discont = true
		s.discont = false
	}
	s.records = append(s.records, r)
}

// Snapshot returns a copy of the session's records. Safe to call at any
// time, including mid-run; the view is prefix-consistent and never contains
// a partially written record.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Record, len(s.records))
	copy(result, s.records)
	return result
}

// Len returns the number of records in the session.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Last returns the most recent record, if any.
func (s *Store) Last() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[len(s.records)-1], true
}

// Clear resets the store for a new session. Invoked only on explicit
// caller action.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = s.records[:0]
	s.discont = false
}

// MarkDiscontinuity arms the discontinuity flag: the next appended record
// will carry Discont. Used by the sampler when a run resumes an existing
// session after a Stop.
func (s *Store) MarkDiscontinuity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discont = true
}
