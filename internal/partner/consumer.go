package partner

import (
	"context"
	"encoding/json"
	"fmt"

	"immersion/internal/convention/models"
	"immersion/internal/outbox"
	id "immersion/pkg/domain"
)

// Consumer feeds the broadcaster from the outbox: every convention reaching
// final validation is queued and broadcast immediately. Other topics pass
// through untouched.
type Consumer struct {
	broadcaster *Broadcaster
}

// NewConsumer builds the outbox-side entry point of the broadcaster.
func NewConsumer(b *Broadcaster) *Consumer {
	return &Consumer{broadcaster: b}
}

// Deliver implements outbox.Sink. A broadcast failure is recorded on the
// reconciliation queue and reported as success here: the event is published
// either way, and the resync job owns the retry.
func (c *Consumer) Deliver(ctx context.Context, event outbox.Event) error {
	if event.Topic != models.TopicStatusChanged {
		return nil
	}
	var payload models.StatusChangedEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("partner: decode %s: %w", event.Topic, err)
	}
	if payload.To != id.StatusAcceptedByValidator {
		return nil
	}
	_, err := c.broadcaster.Process(ctx, payload.ConventionID)
	return err
}
