package models

import (
	"time"

	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
)

// ValidatorName is the named agency user captured for audit on counsellor and
// validator acceptance.
type ValidatorName struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// IsZero reports whether no name was provided.
func (v ValidatorName) IsZero() bool { return v.FirstName == "" && v.LastName == "" }

// Validators records who accepted the convention at each approval step.
type Validators struct {
	Counsellor *ValidatorName `json:"counsellor,omitempty"`
	Validator  *ValidatorName `json:"validator,omitempty"`
}

// StatusJustification is one entry of the transition audit trail.
type StatusJustification struct {
	Status        id.ConventionStatus `json:"status"`
	Role          id.Role             `json:"role"`
	Justification string              `json:"justification,omitempty"`
	At            time.Time           `json:"at"`
}

// Convention is the aggregate root for one professional-immersion agreement.
//
// Invariants:
//   - Status is reachable from its predecessor only through the transition
//     table (direct requests) or signature completion (RecordSignature)
//   - A validator-accepted status is unreachable while any required
//     signatory lacks a signature timestamp
//   - DateEnd is on or after DateStart; the schedule fits the date range
//   - ExternalID is set exactly once, by a successful partner broadcast
//
// Conventions are never hard-deleted: terminal statuses (REJECTED,
// CANCELLED, DEPRECATED) take that place. Mutation happens only through the
// transition service, which holds the row lock for the whole
// validate-then-mutate cycle.
type Convention struct {
	ID         id.ConventionID `json:"id"`
	ExternalID string          `json:"external_id,omitempty"`
	AgencyID   id.AgencyID     `json:"agency_id"`

	Status id.ConventionStatus `json:"status"`

	DateSubmission time.Time  `json:"date_submission"`
	DateValidation *time.Time `json:"date_validation,omitempty"`
	DateStart      time.Time  `json:"date_start"`
	DateEnd        time.Time  `json:"date_end"`

	Schedule    Schedule    `json:"schedule"`
	Signatories Signatories `json:"signatories"`

	EstablishmentSiret      string `json:"establishment_siret"`
	EstablishmentName       string `json:"establishment_name"`
	EstablishmentTutorEmail string `json:"establishment_tutor_email"`

	ImmersionObjective string `json:"immersion_objective"`
	InternshipKind     string `json:"internship_kind"`

	// RenewedFromID links a renewal to the convention it extends.
	RenewedFromID        *id.ConventionID `json:"renewed_from_id,omitempty"`
	RenewedJustification string           `json:"renewed_justification,omitempty"`

	StatusJustifications []StatusJustification `json:"status_justifications,omitempty"`
	Validators           Validators            `json:"validators"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateParams is the form data accepted at creation.
type CreateParams struct {
	AgencyID                id.AgencyID
	DateStart               time.Time
	DateEnd                 time.Time
	Schedule                Schedule
	Signatories             Signatories
	EstablishmentSiret      string
	EstablishmentName       string
	EstablishmentTutorEmail string
	ImmersionObjective      string
	InternshipKind          string
	RenewedFromID           *id.ConventionID
	RenewedJustification    string
}

// New constructs a convention in DRAFT, validating the date and schedule
// invariants. The status is forced regardless of input.
func New(conventionID id.ConventionID, p CreateParams, now time.Time) (*Convention, error) {
	if p.AgencyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "convention requires an agency")
	}
	if p.DateEnd.Before(p.DateStart) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dateEnd must be on or after dateStart")
	}
	if err := p.Schedule.Validate(p.DateStart, p.DateEnd); err != nil {
		return nil, err
	}
	if err := p.Signatories.Validate(); err != nil {
		return nil, err
	}
	if p.RenewedFromID != nil && p.RenewedJustification == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "a renewed convention requires a justification")
	}
	return &Convention{
		ID:                      conventionID,
		AgencyID:                p.AgencyID,
		Status:                  id.StatusDraft,
		DateSubmission:          now,
		DateStart:               p.DateStart,
		DateEnd:                 p.DateEnd,
		Schedule:                p.Schedule,
		Signatories:             p.Signatories,
		EstablishmentSiret:      p.EstablishmentSiret,
		EstablishmentName:       p.EstablishmentName,
		EstablishmentTutorEmail: p.EstablishmentTutorEmail,
		ImmersionObjective:      p.ImmersionObjective,
		InternshipKind:          p.InternshipKind,
		RenewedFromID:           p.RenewedFromID,
		RenewedJustification:    p.RenewedJustification,
		CreatedAt:               now,
		UpdatedAt:               now,
	}, nil
}

// TotalScheduledHours is the duration the partner broadcast payload reports
// and the assessment arithmetic starts from.
func (c *Convention) TotalScheduledHours() float64 {
	return c.Schedule.TotalHours()
}

// TransitionRequest is a direct actor request to change status.
type TransitionRequest struct {
	Target        id.ConventionStatus
	Role          id.Role
	Justification string
	Validator     ValidatorName
}

// CanTransition checks a direct status change request against the transition
// table. It never mutates. Use with ApplyTransition inside the store's
// Execute callback so the lock covers both validation and mutation.
//
// Edge policy: a request whose target equals the current status conflicts
// (idempotent-reject, so retries never double-emit events); a request that
// matches no table entry for the actor's role is Forbidden, never silently
// ignored.
func (c *Convention) CanTransition(req TransitionRequest) error {
	if req.Target == c.Status {
		return dErrors.Newf(dErrors.CodeConflict, "convention is already %s", c.Status)
	}
	rule, ok := RuleFor(req.Target)
	if !ok {
		return dErrors.Newf(dErrors.CodeForbidden, "status %s cannot be requested directly", req.Target)
	}
	if !rule.RoleAllowed(req.Role) {
		return dErrors.Newf(dErrors.CodeForbidden, "role %s may not move a convention to %s", req.Role, req.Target)
	}
	if !rule.FromAllowed(c.Status) {
		return dErrors.Newf(dErrors.CodeForbidden, "cannot move a %s convention to %s", c.Status, req.Target)
	}
	if rule.NeedsJustification && req.Justification == "" {
		return dErrors.Newf(dErrors.CodeBadRequest, "transition to %s requires a justification", req.Target)
	}
	if rule.NeedsValidator && req.Validator.IsZero() {
		return dErrors.Newf(dErrors.CodeBadRequest, "transition to %s requires the validator's first and last name", req.Target)
	}
	return nil
}

// ApplyTransition mutates the aggregate for a request already accepted by
// CanTransition. Side effects follow the table: a DRAFT reset clears every
// signature, acceptance statuses record the named validator, final
// validation stamps DateValidation.
func (c *Convention) ApplyTransition(req TransitionRequest, now time.Time) {
	c.Status = req.Target
	c.UpdatedAt = now

	switch req.Target {
	case id.StatusDraft:
		c.Signatories.clearSignatures()
	case id.StatusAcceptedByCounsellor:
		v := req.Validator
		c.Validators.Counsellor = &v
	case id.StatusAcceptedByValidator:
		v := req.Validator
		c.Validators.Validator = &v
		t := now
		c.DateValidation = &t
	}

	if req.Justification != "" {
		c.StatusJustifications = append(c.StatusJustifications, StatusJustification{
			Status:        req.Target,
			Role:          req.Role,
			Justification: req.Justification,
			At:            now,
		})
	}
}

// SignatureResult reports what RecordSignature changed.
type SignatureResult struct {
	Previous    id.ConventionStatus
	Current     id.ConventionStatus
	FullySigned bool
}

// RecordSignature marks the given role as signed at now and re-evaluates the
// aggregate status: a partial set of signatures keeps or moves the
// convention to PARTIALLY_SIGNED; the final signature moves it to IN_REVIEW.
// FullySigned is true on exactly the call that tips the convention into
// IN_REVIEW.
func (c *Convention) RecordSignature(role id.Role, now time.Time) (SignatureResult, error) {
	res := SignatureResult{Previous: c.Status, Current: c.Status}
	if !role.IsSignatory() {
		return res, dErrors.Newf(dErrors.CodeForbidden, "role %s is not a signatory", role)
	}
	if !c.Status.IsSignable() {
		return res, dErrors.Newf(dErrors.CodeForbidden, "a %s convention cannot be signed", c.Status)
	}
	if err := c.Signatories.markSigned(role, now); err != nil {
		return res, err
	}
	if c.Signatories.IsFullySigned() {
		c.Status = id.StatusInReview
		res.FullySigned = true
	} else {
		c.Status = id.StatusPartiallySigned
	}
	c.UpdatedAt = now
	res.Current = c.Status
	return res, nil
}

// Clone returns a deep copy so the in-memory store never aliases the caller.
func (c *Convention) Clone() *Convention {
	out := *c
	out.Schedule = c.Schedule.Clone()
	out.Signatories = c.Signatories.Clone()
	if c.DateValidation != nil {
		t := *c.DateValidation
		out.DateValidation = &t
	}
	if c.RenewedFromID != nil {
		rid := *c.RenewedFromID
		out.RenewedFromID = &rid
	}
	if c.Validators.Counsellor != nil {
		v := *c.Validators.Counsellor
		out.Validators.Counsellor = &v
	}
	if c.Validators.Validator != nil {
		v := *c.Validators.Validator
		out.Validators.Validator = &v
	}
	out.StatusJustifications = make([]StatusJustification, len(c.StatusJustifications))
	copy(out.StatusJustifications, c.StatusJustifications)
	return &out
}
