package agency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
)

// Postgres is the durable agency store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres builds the postgres agency store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Create stores a new agency.
func (s *Postgres) Create(ctx context.Context, a *Agency) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agencies (id, name, kind, counsellor_emails, validator_emails, refers_to_agency_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(a.ID), a.Name, string(a.Kind), a.CounsellorEmails, a.ValidatorEmails,
		refersTo(a), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("agency: insert: %w", err)
	}
	return nil
}

// GetByID resolves one agency.
func (s *Postgres) GetByID(ctx context.Context, agencyID id.AgencyID) (*Agency, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, kind, counsellor_emails, validator_emails, refers_to_agency_id, created_at, updated_at
		FROM agencies WHERE id = $1
	`, uuid.UUID(agencyID))
	a, err := scanAgency(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return a, err
}

// Update persists a mutated agency.
func (s *Postgres) Update(ctx context.Context, a *Agency) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE agencies SET
			name = $2, kind = $3,
			counsellor_emails = $4, validator_emails = $5,
			refers_to_agency_id = $6, updated_at = $7
		WHERE id = $1
	`, uuid.UUID(a.ID), a.Name, string(a.Kind), a.CounsellorEmails, a.ValidatorEmails,
		refersTo(a), a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("agency: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// GetByIDs resolves several agencies at once; unknown ids are skipped.
func (s *Postgres) GetByIDs(ctx context.Context, agencyIDs []id.AgencyID) ([]*Agency, error) {
	raw := make([]uuid.UUID, len(agencyIDs))
	for i, agencyID := range agencyIDs {
		raw[i] = uuid.UUID(agencyID)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, kind, counsellor_emails, validator_emails, refers_to_agency_id, created_at, updated_at
		FROM agencies WHERE id = ANY($1)
	`, raw)
	if err != nil {
		return nil, fmt.Errorf("agency: query by ids: %w", err)
	}
	defer rows.Close()

	var out []*Agency
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgency(row rowScanner) (*Agency, error) {
	var (
		a         Agency
		rawID     uuid.UUID
		kind      string
		refersRaw *uuid.UUID
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&rawID, &a.Name, &kind, &a.CounsellorEmails, &a.ValidatorEmails, &refersRaw, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("agency: scan: %w", err)
	}
	a.ID = id.AgencyID(rawID)
	a.Kind = Kind(kind)
	a.CreatedAt = createdAt
	a.UpdatedAt = updatedAt
	if refersRaw != nil {
		rid := id.AgencyID(*refersRaw)
		a.RefersToAgencyID = &rid
	}
	return &a, nil
}

func refersTo(a *Agency) *uuid.UUID {
	if a.RefersToAgencyID == nil {
		return nil
	}
	raw := uuid.UUID(*a.RefersToAgencyID)
	return &raw
}
