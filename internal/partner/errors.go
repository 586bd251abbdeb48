package partner

import (
	"context"
	"time"

	id "immersion/pkg/domain"
)

// BroadcastError is one recorded partner failure, surfaced to operators who
// mark it handled once resolved.
type BroadcastError struct {
	ID           id.BroadcastErrorID `json:"id"`
	ConventionID id.ConventionID     `json:"convention_id"`
	ServiceName  string              `json:"service_name"`
	Message      string              `json:"message"`
	OccurredAt   time.Time           `json:"occurred_at"`
	HandledAt    *time.Time          `json:"handled_at,omitempty"`
}

// Handled reports whether an operator resolved this failure.
func (e *BroadcastError) Handled() bool { return e.HandledAt != nil }

// ErrorStore persists broadcast failures.
type ErrorStore interface {
	Save(ctx context.Context, e BroadcastError) error
	GetByID(ctx context.Context, errorID id.BroadcastErrorID) (BroadcastError, error)
	ListUnhandled(ctx context.Context, limit int) ([]BroadcastError, error)
	MarkAsHandled(ctx context.Context, errorID id.BroadcastErrorID, at time.Time) error
}
