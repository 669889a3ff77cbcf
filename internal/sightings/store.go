package sightings

import (
	"slices"
	"sync"
	"time"
)

// Store holds the sightings received within the retention window.
// Expired records are pruned lazily on every insert and read; there is no background timer.
type Store struct {
	mu      sync.Mutex
	window  time.Duration
	records []Sighting // insertion order
	nowFunc func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces the wall clock used for stamping and pruning.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.nowFunc = now
		}
	}
}

// NewStore returns an empty Store.
// window: how long a record stays visible; non-positive values fall back to DefaultWindow.
func NewStore(window time.Duration, opts ...StoreOption) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	s := &Store{
		window:  window,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the retention window.
func (s *Store) Window() time.Duration { return s.window }

// Stamp returns the current time according to the store clock.
func (s *Store) Stamp() time.Time { return s.nowFunc() }

// Insert appends records in the given order, then prunes.
func (s *Store) Insert(records ...Sighting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.pruneLocked(s.nowFunc())
}

// Prune drops expired records and returns how many were dropped.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.nowFunc())
}

// Len prunes and returns the number of live records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.nowFunc())
	return len(s.records)
}

// Snapshot prunes and returns a copy of the live records, most recent first.
// Records sharing a timestamp are returned latest insertion first.
func (s *Store) Snapshot() []Sighting {
	s.mu.Lock()
	s.pruneLocked(s.nowFunc())
	out := make([]Sighting, len(s.records))
	for i, r := range s.records {
		out[len(s.records)-1-i] = r
	}
	s.mu.Unlock()

	// out is reverse insertion order; a stable sort keeps that order for equal timestamps
	slices.SortStableFunc(out, func(a, b Sighting) int {
		return b.ReceivedAt.Compare(a.ReceivedAt)
	})
	return out
}

// pruneLocked keeps only records with now - ReceivedAt < window. Caller holds s.mu.
func (s *Store) pruneLocked(now time.Time) int {
	kept := s.records[:0]
	for _, r := range s.records {
		if now.Sub(r.ReceivedAt) < s.window {
			kept = append(kept, r)
		}
	}
	dropped := len(s.records) - len(kept)
	// clear the tail so dropped records can be collected
	clear(s.records[len(kept):])
	s.records = kept
	return dropped
}
