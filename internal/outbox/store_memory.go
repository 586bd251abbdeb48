package outbox

import (
	"context"
	"sync"
	"time"

	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
)

// InMemoryStore keeps events in order of arrival. Used by unit tests and
// local development; reads return copies to avoid aliasing across tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewInMemoryStore builds an empty in-memory outbox.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append adds a pending event.
func (s *InMemoryStore) Append(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, cloneEvent(event))
	return nil
}

// ListPending returns up to limit pending events, oldest first.
func (s *InMemoryStore) ListPending(ctx context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Status != StatusPending {
			continue
		}
		out = append(out, cloneEvent(ev))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkPublished flips one event to published.
func (s *InMemoryStore) MarkPublished(ctx context.Context, eventID id.EventID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == eventID {
			t := at
			s.events[i].Status = StatusPublished
			s.events[i].PublishedAt = &t
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// MarkFailed counts a delivery attempt; the event stays pending for retry.
func (s *InMemoryStore) MarkFailed(ctx context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == eventID {
			s.events[i].Attempts++
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// All returns every event, for test assertions.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	for i, ev := range s.events {
		out[i] = cloneEvent(ev)
	}
	return out
}

// ByTopic returns every event on one topic, for test assertions.
func (s *InMemoryStore) ByTopic(topic string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Topic == topic {
			out = append(out, cloneEvent(ev))
		}
	}
	return out
}

func cloneEvent(ev Event) Event {
	out := ev
	out.Payload = append([]byte(nil), ev.Payload...)
	if ev.PublishedAt != nil {
		t := *ev.PublishedAt
		out.PublishedAt = &t
	}
	return out
}
