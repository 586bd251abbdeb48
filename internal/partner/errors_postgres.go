package partner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
	txcontext "immersion/pkg/platform/tx"
)

// PostgresErrorStore is the durable broadcast error log. It joins the
// transaction carried in the context when the broadcaster records a failure
// alongside the sync row.
type PostgresErrorStore struct {
	db *sql.DB
}

// NewPostgresErrorStore builds the durable error log over db.
func NewPostgresErrorStore(db *sql.DB) *PostgresErrorStore {
	return &PostgresErrorStore{db: db}
}

type sqlRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresErrorStore) runner(ctx context.Context) sqlRunner {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Save appends the failure.
func (s *PostgresErrorStore) Save(ctx context.Context, e BroadcastError) error {
	_, err := s.runner(ctx).ExecContext(ctx, `
		INSERT INTO broadcast_errors (id, convention_id, service_name, message, occurred_at, handled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(e.ID), uuid.UUID(e.ConventionID), e.ServiceName, e.Message, e.OccurredAt, nullTime(e.HandledAt))
	if err != nil {
		return fmt.Errorf("broadcast errors: insert: %w", err)
	}
	return nil
}

// GetByID resolves one failure.
func (s *PostgresErrorStore) GetByID(ctx context.Context, errorID id.BroadcastErrorID) (BroadcastError, error) {
	row := s.runner(ctx).QueryRowContext(ctx, `
		SELECT id, convention_id, service_name, message, occurred_at, handled_at
		FROM broadcast_errors WHERE id = $1
	`, uuid.UUID(errorID))
	e, err := scanBroadcastError(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BroadcastError{}, sentinel.ErrNotFound
	}
	return e, err
}

// ListUnhandled returns up to limit unresolved failures, oldest first.
func (s *PostgresErrorStore) ListUnhandled(ctx context.Context, limit int) ([]BroadcastError, error) {
	rows, err := s.runner(ctx).QueryContext(ctx, `
		SELECT id, convention_id, service_name, message, occurred_at, handled_at
		FROM broadcast_errors
		WHERE handled_at IS NULL
		ORDER BY occurred_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("broadcast errors: query: %w", err)
	}
	defer rows.Close()

	var out []BroadcastError
	for rows.Next() {
		e, err := scanBroadcastError(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkAsHandled stamps the resolution time.
func (s *PostgresErrorStore) MarkAsHandled(ctx context.Context, errorID id.BroadcastErrorID, at time.Time) error {
	res, err := s.runner(ctx).ExecContext(ctx,
		`UPDATE broadcast_errors SET handled_at = $2 WHERE id = $1`,
		uuid.UUID(errorID), at)
	if err != nil {
		return fmt.Errorf("broadcast errors: mark handled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanBroadcastError(row interface{ Scan(dest ...any) error }) (BroadcastError, error) {
	var (
		e         BroadcastError
		rawID     uuid.UUID
		rawConvID uuid.UUID
		handledAt sql.NullTime
	)
	err := row.Scan(&rawID, &rawConvID, &e.ServiceName, &e.Message, &e.OccurredAt, &handledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BroadcastError{}, sql.ErrNoRows
	}
	if err != nil {
		return BroadcastError{}, fmt.Errorf("broadcast errors: scan: %w", err)
	}
	e.ID = id.BroadcastErrorID(rawID)
	e.ConventionID = id.ConventionID(rawConvID)
	if handledAt.Valid {
		t := handledAt.Time
		e.HandledAt = &t
	}
	return e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
