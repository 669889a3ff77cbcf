package idempotency

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// DefaultMaxEntries bounds the number of remembered identities.
const DefaultMaxEntries = 100000

// ErrNotInProgress is returned when a transition targets a key that was never reserved.
var ErrNotInProgress = errors.New("idempotency key not in progress")

// Store is an in-memory identity-membership cache.
// A key is reserved (IN_PROGRESS) before the guarded work starts, then either
// marked DONE or released so a later delivery can try again.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // oldest first, values are *Record
	ttlWindow  time.Duration
	maxEntries int
	nowFunc    func() time.Time
}

// NewStore returns a configured Store.
// ttlWindow: how long a DONE key is remembered; 0 keeps keys for the process lifetime.
// maxEntries: FIFO capacity; 0 disables the cap.
func NewStore(ttlWindow time.Duration, maxEntries int) *Store {
	return &Store{
		entries:    map[string]*list.Element{},
		order:      list.New(),
		ttlWindow:  ttlWindow,
		maxEntries: maxEntries,
		nowFunc:    time.Now,
	}
}

// CreateIfNotExists reserves key with status IN_PROGRESS.
// Returns true if the key was reserved, false if it is already in progress or done.
func (s *Store) CreateIfNotExists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	s.expireLocked(now)
	if _, ok := s.entries[key]; ok {
		return false
	}

	rec := &Record{
		Key:       key,
		Status:    StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.entries[key] = s.order.PushBack(rec)
	s.evictLocked()
	return true
}

// Get returns a copy of the record for key, or nil if the key is unknown.
func (s *Store) Get(key string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(s.nowFunc())
	el, ok := s.entries[key]
	if !ok {
		return nil
	}
	rec := *el.Value.(*Record)
	return &rec
}

// MarkDone moves an IN_PROGRESS key to DONE.
func (s *Store) MarkDone(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return ErrNotInProgress
	}
	rec := el.Value.(*Record)
	if rec.Status != StatusInProgress {
		return ErrNotInProgress
	}
	now := s.nowFunc()
	rec.Status = StatusDone
	rec.UpdatedAt = now
	if s.ttlWindow > 0 {
		rec.ExpiresAt = now.Add(s.ttlWindow)
	}
	// refresh position so expiry stays ordered by completion time
	s.order.MoveToBack(el)
	return nil
}

// MarkFailed releases an IN_PROGRESS key so the identity is absent again.
func (s *Store) MarkFailed(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok || el.Value.(*Record).Status != StatusInProgress {
		return ErrNotInProgress
	}
	s.order.Remove(el)
	delete(s.entries, key)
	return nil
}

// Len returns the number of remembered keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(s.nowFunc())
	return len(s.entries)
}

// expireLocked drops DONE entries past their TTL. Caller holds s.mu.
// DONE entries sit in completion order, so the scan stops at the first live one;
// only in-flight entries ahead of it are skipped.
func (s *Store) expireLocked(now time.Time) {
	if s.ttlWindow <= 0 {
		return
	}
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		rec := el.Value.(*Record)
		if rec.Status == StatusDone {
			if rec.ExpiresAt.After(now) {
				return
			}
			s.order.Remove(el)
			delete(s.entries, rec.Key)
		}
		el = next
	}
}

// evictLocked drops the oldest DONE entries above capacity. Caller holds s.mu.
// In-progress entries are never evicted.
func (s *Store) evictLocked() {
	if s.maxEntries <= 0 {
		return
	}
	for el := s.order.Front(); el != nil && len(s.entries) > s.maxEntries; {
		next := el.Next()
		rec := el.Value.(*Record)
		if rec.Status == StatusDone {
			s.order.Remove(el)
			delete(s.entries, rec.Key)
		}
		el = next
	}
}
