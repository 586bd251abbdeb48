package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
	txcontext "immersion/pkg/platform/tx"
)

// PostgresStore persists outbox events over database/sql so Append can join
// the transaction the transition service carries in the context.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore builds the durable outbox store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes a pending event, joining the ambient transaction when one is
// present so the event commits together with the aggregate.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO outbox_events (id, topic, occurred_at, payload, status, attempts)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(event.ID), event.Topic, event.OccurredAt, []byte(event.Payload), string(event.Status), event.Attempts)
	if err != nil {
		return fmt.Errorf("outbox: append: %w", err)
	}
	return nil
}

// ListPending returns up to limit pending events, oldest first.
func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, occurred_at, payload, status, attempts, published_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY occurred_at
		LIMIT $2
	`, string(StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: list pending: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev          Event
			rawID       uuid.UUID
			status      string
			publishedAt sql.NullTime
		)
		if err := rows.Scan(&rawID, &ev.Topic, &ev.OccurredAt, (*[]byte)(&ev.Payload), &status, &ev.Attempts, &publishedAt); err != nil {
			return nil, fmt.Errorf("outbox: scan: %w", err)
		}
		ev.ID = id.EventID(rawID)
		ev.Status = Status(status)
		if publishedAt.Valid {
			t := publishedAt.Time
			ev.PublishedAt = &t
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// MarkPublished flips one event to published.
func (s *PostgresStore) MarkPublished(ctx context.Context, eventID id.EventID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE outbox_events SET status = $1, published_at = $2 WHERE id = $3
	`, string(StatusPublished), at, uuid.UUID(eventID))
	if err != nil {
		return fmt.Errorf("outbox: mark published: %w", err)
	}
	return requireRow(res)
}

// MarkFailed counts a delivery attempt; the event stays pending for retry.
func (s *PostgresStore) MarkFailed(ctx context.Context, eventID id.EventID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE outbox_events SET attempts = attempts + 1 WHERE id = $1
	`, uuid.UUID(eventID))
	if err != nil {
		return fmt.Errorf("outbox: mark failed: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
