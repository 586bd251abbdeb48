package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
	txcontext "immersion/pkg/platform/tx"
)

// Unique-violation class; a concurrent duplicate insert surfaces as Conflict.
const pqUniqueViolation = "23505"

// Postgres is the durable assessment store. It joins the transaction carried
// in the context so report creation and the emitted event commit together.
type Postgres struct {
	db *sql.DB
}

// NewPostgres builds the durable assessment store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) runner(ctx context.Context) dbRunner {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create stores the report. The unique index on convention_id makes a
// concurrent second creation conflict instead of slipping through.
func (s *Postgres) Create(ctx context.Context, a *Assessment) error {
	_, err := s.runner(ctx).ExecContext(ctx, `
		INSERT INTO assessments (
			id, convention_id, status, last_day_of_presence,
			number_of_missed_hours, number_of_hours_actually_made,
			establishment_feedback, establishment_advice, ended_with_a_job,
			created_by_role, created_by_email, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		uuid.UUID(a.ID), uuid.UUID(a.ConventionID), string(a.Status), nullableTime(a.LastDayOfPresence),
		a.NumberOfMissedHours, a.NumberOfHoursActuallyMade,
		a.EstablishmentFeedback, a.EstablishmentAdvice, a.EndedWithAJob,
		string(a.CreatedByRole), a.CreatedByEmail, a.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("assessment: insert: %w", err)
	}
	return nil
}

// GetByConventionID resolves the convention's report.
func (s *Postgres) GetByConventionID(ctx context.Context, conventionID id.ConventionID) (*Assessment, error) {
	row := s.runner(ctx).QueryRowContext(ctx, `
		SELECT id, convention_id, status, last_day_of_presence,
			number_of_missed_hours, number_of_hours_actually_made,
			establishment_feedback, establishment_advice, ended_with_a_job,
			created_by_role, created_by_email, created_at
		FROM assessments WHERE convention_id = $1
	`, uuid.UUID(conventionID))

	var (
		a           Assessment
		rawID       uuid.UUID
		rawConvID   uuid.UUID
		status      string
		lastDay     sql.NullTime
		createdRole string
	)
	err := row.Scan(
		&rawID, &rawConvID, &status, &lastDay,
		&a.NumberOfMissedHours, &a.NumberOfHoursActuallyMade,
		&a.EstablishmentFeedback, &a.EstablishmentAdvice, &a.EndedWithAJob,
		&createdRole, &a.CreatedByEmail, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("assessment: scan: %w", err)
	}
	a.ID = id.AssessmentID(rawID)
	a.ConventionID = id.ConventionID(rawConvID)
	a.Status = Status(status)
	a.CreatedByRole = id.Role(createdRole)
	if lastDay.Valid {
		t := lastDay.Time
		a.LastDayOfPresence = &t
	}
	return &a, nil
}

// ExistsForConvention reports whether the convention has a report.
func (s *Postgres) ExistsForConvention(ctx context.Context, conventionID id.ConventionID) (bool, error) {
	var exists bool
	err := s.runner(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM assessments WHERE convention_id = $1)`,
		uuid.UUID(conventionID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("assessment: exists: %w", err)
	}
	return exists, nil
}

// Delete removes the convention's report.
func (s *Postgres) Delete(ctx context.Context, conventionID id.ConventionID) error {
	res, err := s.runner(ctx).ExecContext(ctx,
		`DELETE FROM assessments WHERE convention_id = $1`,
		uuid.UUID(conventionID))
	if err != nil {
		return fmt.Errorf("assessment: delete: %w", err)
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

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
