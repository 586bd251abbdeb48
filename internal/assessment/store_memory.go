package assessment

import (
	"context"
	"sync"

	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
)

// InMemory keeps at most one assessment per convention, for unit tests and
// local development.
type InMemory struct {
	mu          sync.RWMutex
	assessments map[id.ConventionID]*Assessment
}

// NewInMemory builds an empty in-memory assessment store.
func NewInMemory() *InMemory {
	return &InMemory{assessments: make(map[id.ConventionID]*Assessment)}
}

// Create stores the report; a second report for the convention conflicts.
func (s *InMemory) Create(ctx context.Context, a *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assessments[a.ConventionID]; exists {
		return sentinel.ErrConflict
	}
	s.assessments[a.ConventionID] = a.Clone()
	return nil
}

// GetByConventionID resolves the convention's report.
func (s *InMemory) GetByConventionID(ctx context.Context, conventionID id.ConventionID) (*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[conventionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

// ExistsForConvention reports whether the convention has a report.
func (s *InMemory) ExistsForConvention(ctx context.Context, conventionID id.ConventionID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assessments[conventionID]
	return ok, nil
}

// Delete removes the convention's report.
func (s *InMemory) Delete(ctx context.Context, conventionID id.ConventionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assessments[conventionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.assessments, conventionID)
	return nil
}
