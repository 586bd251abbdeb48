package partner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
)

// PostgresToSyncStore is the durable reconciliation queue.
type PostgresToSyncStore struct {
	pool *pgxpool.Pool
}

// NewPostgresToSyncStore builds the durable queue over pool.
func NewPostgresToSyncStore(pool *pgxpool.Pool) *PostgresToSyncStore {
	return &PostgresToSyncStore{pool: pool}
}

// Save upserts the row on convention_id.
func (s *PostgresToSyncStore) Save(ctx context.Context, row ConventionToSync) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conventions_to_sync (convention_id, status, process_date, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (convention_id) DO UPDATE
		SET status = EXCLUDED.status, process_date = EXCLUDED.process_date, reason = EXCLUDED.reason
	`, uuid.UUID(row.ConventionID), string(row.Status), row.ProcessDate, row.Reason)
	if err != nil {
		return fmt.Errorf("tosync: upsert: %w", err)
	}
	return nil
}

// GetByConventionID resolves one row.
func (s *PostgresToSyncStore) GetByConventionID(ctx context.Context, conventionID id.ConventionID) (ConventionToSync, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT convention_id, status, process_date, reason
		FROM conventions_to_sync WHERE convention_id = $1
	`, uuid.UUID(conventionID))
	out, err := scanToSync(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConventionToSync{}, sentinel.ErrNotFound
	}
	return out, err
}

// ListByStatuses returns up to limit rows in the given statuses, never
// processed rows first, then oldest process date.
func (s *PostgresToSyncStore) ListByStatuses(ctx context.Context, statuses []SyncStatus, limit int) ([]ConventionToSync, error) {
	raw := make([]string, len(statuses))
	for i, st := range statuses {
		raw[i] = string(st)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT convention_id, status, process_date, reason
		FROM conventions_to_sync
		WHERE status = ANY($1)
		ORDER BY process_date ASC NULLS FIRST
		LIMIT $2
	`, raw, limit)
	if err != nil {
		return nil, fmt.Errorf("tosync: query: %w", err)
	}
	defer rows.Close()

	var out []ConventionToSync
	for rows.Next() {
		row, err := scanToSync(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToSync(row rowScanner) (ConventionToSync, error) {
	var (
		out    ConventionToSync
		rawID  uuid.UUID
		status string
	)
	if err := row.Scan(&rawID, &status, &out.ProcessDate, &out.Reason); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ConventionToSync{}, pgx.ErrNoRows
		}
		return ConventionToSync{}, fmt.Errorf("tosync: scan: %w", err)
	}
	out.ConventionID = id.ConventionID(rawID)
	out.Status = SyncStatus(status)
	return out, nil
}
