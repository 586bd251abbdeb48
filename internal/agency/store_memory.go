package agency

import (
	"context"
	"sync"

	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
)

// InMemory is the agency store used by unit tests and local development.
// Reads return clones so callers never alias store state.
type InMemory struct {
	mu       sync.RWMutex
	agencies map[id.AgencyID]*Agency
}

// NewInMemory builds an empty in-memory agency store.
func NewInMemory() *InMemory {
	return &InMemory{agencies: make(map[id.AgencyID]*Agency)}
}

// Create stores a new agency; a duplicate id conflicts.
func (s *InMemory) Create(ctx context.Context, a *Agency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agencies[a.ID]; exists {
		return sentinel.ErrConflict
	}
	s.agencies[a.ID] = a.Clone()
	return nil
}

// GetByID resolves one agency.
func (s *InMemory) GetByID(ctx context.Context, agencyID id.AgencyID) (*Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agencies[agencyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

// Update persists a mutated agency.
func (s *InMemory) Update(ctx context.Context, a *Agency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agencies[a.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.agencies[a.ID] = a.Clone()
	return nil
}

// GetByIDs resolves several agencies at once; unknown ids are skipped, the
// caller decides whether a missing agency is an error.
func (s *InMemory) GetByIDs(ctx context.Context, agencyIDs []id.AgencyID) ([]*Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Agency, 0, len(agencyIDs))
	for _, agencyID := range agencyIDs {
		if a, ok := s.agencies[agencyID]; ok {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}
