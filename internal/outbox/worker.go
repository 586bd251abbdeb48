package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Sink receives drained outbox events. A sink must be idempotent: the worker
// retries an event when any sink fails, so earlier sinks may see it twice.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Deliver(ctx context.Context, event Event) error { return f(ctx, event) }

// Worker drains pending events on an interval and hands them to every sink.
// One event's failure never blocks the others: it is counted and retried on
// the next tick.
type Worker struct {
	store     Store
	sinks     []Sink
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// NewWorker builds a worker draining store into sinks every interval.
func NewWorker(store Store, sinks []Sink, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		store:     store,
		sinks:     sinks,
		interval:  interval,
		batchSize: 100,
		logger:    logger,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce delivers one batch of pending events. Exposed so tests and the
// transition scenario suite can run the pipeline synchronously.
func (w *Worker) DrainOnce(ctx context.Context) {
	events, err := w.store.ListPending(ctx, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "outbox: list pending failed", "error", err)
		return
	}
	for _, ev := range events {
		if err := w.deliver(ctx, ev); err != nil {
			w.logger.WarnContext(ctx, "outbox: delivery failed",
				"event_id", ev.ID.String(),
				"topic", ev.Topic,
				"attempts", ev.Attempts+1,
				"error", err,
			)
			if err := w.store.MarkFailed(ctx, ev.ID); err != nil {
				w.logger.ErrorContext(ctx, "outbox: mark failed", "event_id", ev.ID.String(), "error", err)
			}
			continue
		}
		if err := w.store.MarkPublished(ctx, ev.ID, time.Now()); err != nil {
			w.logger.ErrorContext(ctx, "outbox: mark published", "event_id", ev.ID.String(), "error", err)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, ev Event) error {
	for _, sink := range w.sinks {
		if err := sink.Deliver(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
