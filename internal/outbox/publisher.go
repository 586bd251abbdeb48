package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	id "immersion/pkg/domain"
	"immersion/pkg/requestcontext"
)

// Publisher creates domain events and appends them to the outbox. It is the
// only write path for producers; delivery belongs to the worker.
type Publisher struct {
	store Store
}

// NewPublisher builds a publisher over the given store.
func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit marshals payload and appends a pending event. The timestamp comes
// from the request-scoped clock so a whole transition shares one "now".
func (p *Publisher) Emit(ctx context.Context, topic string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal %s payload: %w", topic, err)
	}
	return p.store.Append(ctx, Event{
		ID:         id.NewEventID(),
		Topic:      topic,
		OccurredAt: requestcontext.Now(ctx),
		Payload:    raw,
		Status:     StatusPending,
	})
}
