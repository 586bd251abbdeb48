package partner

import (
	"context"
	"sort"
	"sync"

	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
)

// InMemoryToSyncStore backs unit tests and local development.
type InMemoryToSyncStore struct {
	mu   sync.RWMutex
	rows map[id.ConventionID]ConventionToSync
	seq  map[id.ConventionID]int
	next int
}

// NewInMemoryToSyncStore builds an empty in-memory reconciliation queue.
func NewInMemoryToSyncStore() *InMemoryToSyncStore {
	return &InMemoryToSyncStore{
		rows: make(map[id.ConventionID]ConventionToSync),
		seq:  make(map[id.ConventionID]int),
	}
}

// Save upserts the row, keeping first-insertion order for listing.
func (s *InMemoryToSyncStore) Save(ctx context.Context, row ConventionToSync) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seq[row.ConventionID]; !ok {
		s.seq[row.ConventionID] = s.next
		s.next++
	}
	s.rows[row.ConventionID] = cloneRow(row)
	return nil
}

// GetByConventionID resolves one row.
func (s *InMemoryToSyncStore) GetByConventionID(ctx context.Context, conventionID id.ConventionID) (ConventionToSync, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[conventionID]
	if !ok {
		return ConventionToSync{}, sentinel.ErrNotFound
	}
	return cloneRow(row), nil
}

// ListByStatuses returns up to limit rows in the given statuses, in
// insertion order.
func (s *InMemoryToSyncStore) ListByStatuses(ctx context.Context, statuses []SyncStatus, limit int) ([]ConventionToSync, error) {
	wanted := make(map[SyncStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ConventionToSync
	for _, row := range s.rows {
		if wanted[row.Status] {
			out = append(out, cloneRow(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ConventionID] < s.seq[out[j].ConventionID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRow(row ConventionToSync) ConventionToSync {
	out := row
	if row.ProcessDate != nil {
		t := *row.ProcessDate
		out.ProcessDate = &t
	}
	return out
}
