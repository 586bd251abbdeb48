// Package store persists convention aggregates. The in-memory variant backs
// unit tests and local development; the postgres variant is the durable one.
package store

import (
	"context"
	"sync"

	"immersion/internal/convention/models"
	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
)

// InMemory keeps conventions in a map guarded by a mutex. Every read returns
// a deep clone so no two callers (or test cases) alias the same aggregate.
type InMemory struct {
	mu          sync.RWMutex
	conventions map[id.ConventionID]*models.Convention
}

// NewInMemory builds an empty in-memory convention store.
func NewInMemory() *InMemory {
	return &InMemory{conventions: make(map[id.ConventionID]*models.Convention)}
}

// Create stores a new convention; a duplicate id conflicts.
func (s *InMemory) Create(ctx context.Context, c *models.Convention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.conventions[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.conventions[c.ID] = c.Clone()
	return nil
}

// GetByID resolves one convention.
func (s *InMemory) GetByID(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conventions[conventionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

// GetByIDForUpdate resolves one convention for mutation. The in-memory store
// has no row locks; the service's InMemoryTx serializes transitions instead.
func (s *InMemory) GetByIDForUpdate(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error) {
	return s.GetByID(ctx, conventionID)
}

// GetByIDs resolves several conventions; unknown ids are skipped.
func (s *InMemory) GetByIDs(ctx context.Context, ids []id.ConventionID) ([]*models.Convention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Convention, 0, len(ids))
	for _, conventionID := range ids {
		if c, ok := s.conventions[conventionID]; ok {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// Update persists a mutated aggregate.
func (s *InMemory) Update(ctx context.Context, c *models.Convention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.conventions[c.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.conventions[c.ID] = c.Clone()
	return nil
}
