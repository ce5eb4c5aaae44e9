package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a development-only store. State is lost on restart and is
// not shared between instances.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Check(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if at, ok := s.seen[key]; ok && (s.ttl <= 0 || now.Sub(at) < s.ttl) {
		return true, nil
	}
	s.seen[key] = now
	return false, nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
	return nil
}
