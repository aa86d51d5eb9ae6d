package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Dzaakk/playtime-gateway/internal/limiter"
)

const cleanupEvery = 30 * time.Second

type entry struct {
	timestamp time.Time
	expiry    time.Time
}

// MemoryStore keeps rate window records per identity in process memory.
// It serves single-instance deployments and tests.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string][]entry
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		m:    map[string][]entry{},
		now:  time.Now,
		stop: make(chan struct{}),
	}
	go s.cleanupLoop()

	return s
}

// WithClock replaces the time source used for expiry checks.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k := range s.m {
		s.pruneLocked(k, now)
	}
}

// pruneLocked drops expired records and removes the identity when empty.
func (s *MemoryStore) pruneLocked(identity string, now time.Time) []entry {
	live := s.m[identity][:0]
	for _, e := range s.m[identity] {
		if e.expiry.After(now) {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		delete(s.m, identity)
		return nil
	}
	s.m[identity] = live
	return live
}

func (s *MemoryStore) CountSince(_ context.Context, identity string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.countLocked(identity, since), nil
}

func (s *MemoryStore) countLocked(identity string, since time.Time) int {
	count := 0
	for _, e := range s.pruneLocked(identity, s.now()) {
		if !e.timestamp.Before(since) {
			count++
		}
	}
	return count
}

func (s *MemoryStore) Record(_ context.Context, rec limiter.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[rec.Identity] = append(s.m[rec.Identity], entry{timestamp: rec.Timestamp, expiry: rec.ExpireAt})
	return nil
}

func (s *MemoryStore) RecordIfBelow(_ context.Context, rec limiter.Record, since time.Time, max int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countLocked(rec.Identity, since) >= max {
		return false, nil
	}
	s.m[rec.Identity] = append(s.m[rec.Identity], entry{timestamp: rec.Timestamp, expiry: rec.ExpireAt})
	return true, nil
}

var _ limiter.CeilingStore = (*MemoryStore)(nil)
