package partner

import (
	"context"
	"sync"
	"time"

	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
)

// InMemoryErrorStore backs unit tests and local development.
type InMemoryErrorStore struct {
	mu     sync.RWMutex
	errors []BroadcastError
}

// NewInMemoryErrorStore builds an empty in-memory broadcast error log.
func NewInMemoryErrorStore() *InMemoryErrorStore {
	return &InMemoryErrorStore{}
}

// Save appends the failure.
func (s *InMemoryErrorStore) Save(ctx context.Context, e BroadcastError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, cloneError(e))
	return nil
}

// GetByID resolves one failure.
func (s *InMemoryErrorStore) GetByID(ctx context.Context, errorID id.BroadcastErrorID) (BroadcastError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.errors {
		if e.ID == errorID {
			return cloneError(e), nil
		}
	}
	return BroadcastError{}, sentinel.ErrNotFound
}

// ListUnhandled returns up to limit unresolved failures, oldest first.
func (s *InMemoryErrorStore) ListUnhandled(ctx context.Context, limit int) ([]BroadcastError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []BroadcastError
	for _, e := range s.errors {
		if e.Handled() {
			continue
		}
		out = append(out, cloneError(e))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkAsHandled stamps the resolution time.
func (s *InMemoryErrorStore) MarkAsHandled(ctx context.Context, errorID id.BroadcastErrorID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.errors {
		if s.errors[i].ID == errorID {
			t := at
			s.errors[i].HandledAt = &t
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// All returns every recorded failure, for test assertions.
func (s *InMemoryErrorStore) All() []BroadcastError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BroadcastError, len(s.errors))
	for i, e := range s.errors {
		out[i] = cloneError(e)
	}
	return out
}

func cloneError(e BroadcastError) BroadcastError {
	out := e
	if e.HandledAt != nil {
		t := *e.HandledAt
		out.HandledAt = &t
	}
	return out
}
