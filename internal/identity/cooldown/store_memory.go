package cooldown

import (
	"context"
	"sync"
	"time"

	"idlink/pkg/requestcontext"
)

// InMemoryStorage keeps cooldown deadlines in a map. Deadlines are compared
// against request-scoped time so tests can simulate the clock.
type InMemoryStorage struct {
	mu        sync.RWMutex
	deadlines map[string]time.Time
}

func NewInMemory() *InMemoryStorage {
	return &InMemoryStorage{deadlines: make(map[string]time.Time)}
}

func (s *InMemoryStorage) CanUnlink(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deadline, ok := s.deadlines[userID]
	if !ok {
		return true, nil
	}
	return !deadline.After(requestcontext.Now(ctx)), nil
}

func (s *InMemoryStorage) Refresh(ctx context.Context, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl <= 0 {
		delete(s.deadlines, userID)
		return nil
	}
	s.deadlines[userID] = requestcontext.Now(ctx).Add(ttl)
	return nil
}
