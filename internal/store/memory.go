package store

import (
	"context"
	"sync"
	"time"

	"github.com/envidicy/insights/internal/models"
)

type slot struct {
	latest  uint64
	ds      *models.Dataset
	touched time.Time
}

// MemoryStore keeps datasets in process. Generations come from one counter
// shared by all sessions, so a slot can be dropped and recreated without a
// stale generation ever matching again.
type MemoryStore struct {
	mu        sync.RWMutex
	slots     map[string]*slot
	gen       uint64
	ttl       time.Duration
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryStore returns a store whose sessions expire after ttl without a
// Begin or Commit. ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{slots: make(map[string]*slot), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Begin(_ context.Context, session string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	sl, ok := s.slots[session]
	if !ok {
		sl = &slot{}
		s.slots[session] = sl
	}
	s.gen++
	sl.latest = s.gen
	sl.touched = now
	return sl.latest, nil
}

// Commit installs ds when gen is still the session's latest. A nil ds clears
// the session and releases its slot.
func (s *MemoryStore) Commit(_ context.Context, session string, gen uint64, ds *models.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[session]
	if !ok || sl.latest != gen || s.expired(sl, s.now()) {
		return ErrStale
	}
	if ds == nil {
		delete(s.slots, session)
		return nil
	}
	sl.ds = ds
	sl.touched = s.now()
	return nil
}

func (s *MemoryStore) Current(_ context.Context, session string) (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[session]
	if !ok || sl.ds == nil || s.expired(sl, s.now()) {
		return nil, ErrNotFound
	}
	return sl.ds, nil
}

// Sessions returns how many sessions currently hold a dataset.
func (s *MemoryStore) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	n := 0
	for _, sl := range s.slots {
		if sl.ds != nil && !s.expired(sl, now) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) expired(sl *slot, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sl.touched) > s.ttl
}

// sweep drops expired slots at most once per half ttl. Caller holds mu.
func (s *MemoryStore) sweep(now time.Time) {
	if s.ttl <= 0 || now.Before(s.nextSweep) {
		return
	}
	for k, sl := range s.slots {
		if s.expired(sl, now) {
			delete(s.slots, k)
		}
	}
	s.nextSweep = now.Add(s.ttl / 2)
}
