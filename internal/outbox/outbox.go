// Package outbox implements the transactional event outbox.
//
// Domain events are appended to the outbox inside the same transaction as
// the aggregate write, then drained by a worker that hands them to sinks
// (Kafka, in-process consumers). This decouples the transition's durability
// from the availability of email/SMS/partner APIs.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	id "immersion/pkg/domain"
)

// Status tracks whether an event has left the outbox.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPublished Status = "PUBLISHED"
)

// Event is one domain event awaiting (or past) publication. The table is
// append-only for producers; only the worker updates Status and Attempts.
type Event struct {
	ID          id.EventID      `json:"id"`
	Topic       string          `json:"topic"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
	Status      Status          `json:"status"`
	Attempts    int             `json:"attempts"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// Store persists outbox events. Append must participate in the ambient
// transaction when one is carried by the context so the event commits or
// rolls back together with the aggregate.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListPending(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, eventID id.EventID, at time.Time) error
	MarkFailed(ctx context.Context, eventID id.EventID) error
}
