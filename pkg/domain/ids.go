// Package domain holds typed identifiers shared across features.
//
// IDs are distinct types over uuid.UUID so a ConventionID can never be passed
// where an AgencyID is expected. Construct via the Parse helpers at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "immersion/pkg/domain-errors"
)

type (
	// ConventionID identifies one immersion convention.
	ConventionID uuid.UUID
	// AgencyID identifies the agency responsible for validating conventions.
	AgencyID uuid.UUID
	// AssessmentID identifies the post-placement assessment of a convention.
	AssessmentID uuid.UUID
	// UserID identifies an agency-side user (counsellor, validator, admin).
	UserID uuid.UUID
	// EventID identifies one outbox domain event.
	EventID uuid.UUID
	// BroadcastErrorID identifies one recorded partner broadcast failure.
	BroadcastErrorID uuid.UUID
)

func (id ConventionID) String() string { return uuid.UUID(id).String() }
func (id AgencyID) String() string     { return uuid.UUID(id).String() }
func (id AssessmentID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id EventID) String() string      { return uuid.UUID(id).String() }

func (id BroadcastErrorID) String() string { return uuid.UUID(id).String() }

func (id ConventionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AgencyID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AssessmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// NewConventionID returns a fresh random convention id.
func NewConventionID() ConventionID { return ConventionID(uuid.New()) }

// NewAgencyID returns a fresh random agency id.
func NewAgencyID() AgencyID { return AgencyID(uuid.New()) }

// NewAssessmentID returns a fresh random assessment id.
func NewAssessmentID() AssessmentID { return AssessmentID(uuid.New()) }

// NewUserID returns a fresh random user id.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewEventID returns a fresh random event id.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewBroadcastErrorID returns a fresh random broadcast error id.
func NewBroadcastErrorID() BroadcastErrorID { return BroadcastErrorID(uuid.New()) }

// parseUUID enforces the shared invariant: valid, non-empty, non-nil.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s id is not a valid UUID", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s id must not be the nil UUID", kind)
	}
	return parsed, nil
}

// ParseConventionID constructs a ConventionID from external input.
func ParseConventionID(raw string) (ConventionID, error) {
	parsed, err := parseUUID(raw, "convention")
	return ConventionID(parsed), err
}

// ParseAgencyID constructs an AgencyID from external input.
func ParseAgencyID(raw string) (AgencyID, error) {
	parsed, err := parseUUID(raw, "agency")
	return AgencyID(parsed), err
}

// ParseAssessmentID constructs an AssessmentID from external input.
func ParseAssessmentID(raw string) (AssessmentID, error) {
	parsed, err := parseUUID(raw, "assessment")
	return AssessmentID(parsed), err
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

// ParseBroadcastErrorID constructs a BroadcastErrorID from external input.
func ParseBroadcastErrorID(raw string) (BroadcastErrorID, error) {
	parsed, err := parseUUID(raw, "broadcast error")
	return BroadcastErrorID(parsed), err
}
