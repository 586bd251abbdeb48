package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"immersion/internal/convention/models"
	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
	txcontext "immersion/pkg/platform/tx"
)

// Postgres persists conventions over database/sql so reads-for-update and
// writes join the transaction the transition service carries in the context.
// The row lock taken by GetByIDForUpdate serializes concurrent transitions on
// one convention; a stale target status then surfaces as a Conflict instead
// of a silent last-writer-wins.
type Postgres struct {
	db *sql.DB
}

// NewPostgres builds the durable convention store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) runner(ctx context.Context) dbRunner {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const conventionColumns = `
	id, external_id, agency_id, status,
	date_submission, date_validation, date_start, date_end,
	schedule, signatories,
	establishment_siret, establishment_name, establishment_tutor_email,
	immersion_objective, internship_kind,
	renewed_from_id, renewed_justification,
	status_justifications, validators,
	created_at, updated_at`

// Create stores a new convention.
func (s *Postgres) Create(ctx context.Context, c *models.Convention) error {
	schedule, signatories, justifications, validators, err := marshalJSONColumns(c)
	if err != nil {
		return err
	}
	_, err = s.runner(ctx).ExecContext(ctx, `
		INSERT INTO conventions (`+conventionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`,
		uuid.UUID(c.ID), c.ExternalID, uuid.UUID(c.AgencyID), string(c.Status),
		c.DateSubmission, nullableTime(c.DateValidation), c.DateStart, c.DateEnd,
		schedule, signatories,
		c.EstablishmentSiret, c.EstablishmentName, c.EstablishmentTutorEmail,
		c.ImmersionObjective, c.InternshipKind,
		nullableConventionID(c.RenewedFromID), c.RenewedJustification,
		justifications, validators,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("convention: insert: %w", err)
	}
	return nil
}

// GetByID resolves one convention without locking.
func (s *Postgres) GetByID(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error) {
	row := s.runner(ctx).QueryRowContext(ctx,
		`SELECT `+conventionColumns+` FROM conventions WHERE id = $1`,
		uuid.UUID(conventionID))
	return scanConvention(row)
}

// GetByIDForUpdate resolves one convention holding its row lock until the
// ambient transaction commits. Must run inside RunInTx.
func (s *Postgres) GetByIDForUpdate(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error) {
	row := s.runner(ctx).QueryRowContext(ctx,
		`SELECT `+conventionColumns+` FROM conventions WHERE id = $1 FOR UPDATE`,
		uuid.UUID(conventionID))
	return scanConvention(row)
}

// GetByIDs resolves several conventions; unknown ids are skipped.
func (s *Postgres) GetByIDs(ctx context.Context, ids []id.ConventionID) ([]*models.Convention, error) {
	raw := make([]string, len(ids))
	for i, conventionID := range ids {
		raw[i] = conventionID.String()
	}
	rows, err := s.runner(ctx).QueryContext(ctx,
		`SELECT `+conventionColumns+` FROM conventions WHERE id = ANY($1::uuid[])`,
		pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("convention: query by ids: %w", err)
	}
	defer rows.Close()

	var out []*models.Convention
	for rows.Next() {
		c, err := scanConventionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update persists a mutated aggregate.
func (s *Postgres) Update(ctx context.Context, c *models.Convention) error {
	schedule, signatories, justifications, validators, err := marshalJSONColumns(c)
	if err != nil {
		return err
	}
	res, err := s.runner(ctx).ExecContext(ctx, `
		UPDATE conventions SET
			external_id = $2, status = $3,
			date_validation = $4,
			schedule = $5, signatories = $6,
			status_justifications = $7, validators = $8,
			updated_at = $9
		WHERE id = $1
	`,
		uuid.UUID(c.ID), c.ExternalID, string(c.Status),
		nullableTime(c.DateValidation),
		schedule, signatories,
		justifications, validators,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("convention: update: %w", err)
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

func marshalJSONColumns(c *models.Convention) (schedule, signatories, justifications, validators []byte, err error) {
	if schedule, err = json.Marshal(c.Schedule); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("convention: marshal schedule: %w", err)
	}
	if signatories, err = json.Marshal(c.Signatories); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("convention: marshal signatories: %w", err)
	}
	if justifications, err = json.Marshal(c.StatusJustifications); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("convention: marshal status justifications: %w", err)
	}
	if validators, err = json.Marshal(c.Validators); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("convention: marshal validators: %w", err)
	}
	return schedule, signatories, justifications, validators, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFields(row rowScanner) (*models.Convention, error) {
	var (
		c              models.Convention
		rawID          uuid.UUID
		rawAgencyID    uuid.UUID
		status         string
		dateValidation sql.NullTime
		schedule       []byte
		signatories    []byte
		renewedFrom    uuid.NullUUID
		justifications []byte
		validators     []byte
	)
	err := row.Scan(
		&rawID, &c.ExternalID, &rawAgencyID, &status,
		&c.DateSubmission, &dateValidation, &c.DateStart, &c.DateEnd,
		&schedule, &signatories,
		&c.EstablishmentSiret, &c.EstablishmentName, &c.EstablishmentTutorEmail,
		&c.ImmersionObjective, &c.InternshipKind,
		&renewedFrom, &c.RenewedJustification,
		&justifications, &validators,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.ConventionID(rawID)
	c.AgencyID = id.AgencyID(rawAgencyID)
	c.Status = id.ConventionStatus(status)
	if dateValidation.Valid {
		t := dateValidation.Time
		c.DateValidation = &t
	}
	if renewedFrom.Valid {
		rid := id.ConventionID(renewedFrom.UUID)
		c.RenewedFromID = &rid
	}
	if err := json.Unmarshal(schedule, &c.Schedule); err != nil {
		return nil, fmt.Errorf("convention: unmarshal schedule: %w", err)
	}
	if err := json.Unmarshal(signatories, &c.Signatories); err != nil {
		return nil, fmt.Errorf("convention: unmarshal signatories: %w", err)
	}
	if err := json.Unmarshal(justifications, &c.StatusJustifications); err != nil {
		return nil, fmt.Errorf("convention: unmarshal status justifications: %w", err)
	}
	if err := json.Unmarshal(validators, &c.Validators); err != nil {
		return nil, fmt.Errorf("convention: unmarshal validators: %w", err)
	}
	return &c, nil
}

func scanConvention(row *sql.Row) (*models.Convention, error) {
	c, err := scanFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("convention: scan: %w", err)
	}
	return c, nil
}

func scanConventionRows(rows *sql.Rows) (*models.Convention, error) {
	c, err := scanFields(rows)
	if err != nil {
		return nil, fmt.Errorf("convention: scan: %w", err)
	}
	return c, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullableConventionID(cid *id.ConventionID) uuid.NullUUID {
	if cid == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*cid), Valid: true}
}
