package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the full DDL. Statements are idempotent so EnsureSchema can run
// at startup and in test containers alike.
const Schema = `
CREATE TABLE IF NOT EXISTS agencies (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	counsellor_emails TEXT[] NOT NULL DEFAULT '{}',
	validator_emails TEXT[] NOT NULL DEFAULT '{}',
	refers_to_agency_id UUID,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS conventions (
	id UUID PRIMARY KEY,
	external_id TEXT NOT NULL DEFAULT '',
	agency_id UUID NOT NULL REFERENCES agencies (id),
	status TEXT NOT NULL,
	date_submission TIMESTAMPTZ NOT NULL,
	date_validation TIMESTAMPTZ,
	date_start TIMESTAMPTZ NOT NULL,
	date_end TIMESTAMPTZ NOT NULL,
	schedule JSONB NOT NULL,
	signatories JSONB NOT NULL,
	establishment_siret TEXT NOT NULL,
	establishment_name TEXT NOT NULL,
	establishment_tutor_email TEXT NOT NULL DEFAULT '',
	immersion_objective TEXT NOT NULL DEFAULT '',
	internship_kind TEXT NOT NULL DEFAULT '',
	renewed_from_id UUID,
	renewed_justification TEXT NOT NULL DEFAULT '',
	status_justifications JSONB NOT NULL DEFAULT '[]',
	validators JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assessments (
	id UUID PRIMARY KEY,
	convention_id UUID NOT NULL REFERENCES conventions (id),
	status TEXT NOT NULL,
	last_day_of_presence TIMESTAMPTZ,
	number_of_missed_hours DOUBLE PRECISION NOT NULL,
	number_of_hours_actually_made DOUBLE PRECISION NOT NULL,
	establishment_feedback TEXT NOT NULL DEFAULT '',
	establishment_advice TEXT NOT NULL DEFAULT '',
	ended_with_a_job BOOLEAN NOT NULL DEFAULT FALSE,
	created_by_role TEXT NOT NULL,
	created_by_email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS assessments_convention_id_key
	ON assessments (convention_id);

CREATE TABLE IF NOT EXISTS outbox_events (
	id UUID PRIMARY KEY,
	topic TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL,
	status TEXT NOT NULL,
	attempts INT NOT NULL DEFAULT 0,
	published_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS outbox_events_status_idx
	ON outbox_events (status, occurred_at);

CREATE TABLE IF NOT EXISTS conventions_to_sync (
	convention_id UUID PRIMARY KEY,
	status TEXT NOT NULL,
	process_date TIMESTAMPTZ,
	reason TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS broadcast_errors (
	id UUID PRIMARY KEY,
	convention_id UUID NOT NULL,
	service_name TEXT NOT NULL,
	message TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	handled_at TIMESTAMPTZ
);
`

// EnsureSchema applies the DDL.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}
