package domain

import dErrors "immersion/pkg/domain-errors"

// ConventionStatus is the lifecycle state of a convention.
// Invariant: the value must be one of the closed set below; a status is only
// reachable from its predecessor through the transition rules in
// internal/convention/models.
//
// Usage: construct via ParseConventionStatus at trust boundaries to enforce
// the allowlist; direct casting bypasses validation.
type ConventionStatus string

const (
	StatusDraft                ConventionStatus = "DRAFT"
	StatusReadyToSign          ConventionStatus = "READY_TO_SIGN"
	StatusPartiallySigned      ConventionStatus = "PARTIALLY_SIGNED"
	StatusInReview             ConventionStatus = "IN_REVIEW"
	StatusAcceptedByCounsellor ConventionStatus = "ACCEPTED_BY_COUNSELLOR"
	StatusAcceptedByValidator  ConventionStatus = "ACCEPTED_BY_VALIDATOR"
	StatusRejected             ConventionStatus = "REJECTED"
	StatusCancelled            ConventionStatus = "CANCELLED"
	StatusDeprecated           ConventionStatus = "DEPRECATED"
)

// AllConventionStatuses is the single source of truth for the closed set.
// Adding a status here forces the transition table and every switch over
// ConventionStatus to be revisited (see status tests).
var AllConventionStatuses = []ConventionStatus{
	StatusDraft,
	StatusReadyToSign,
	StatusPartiallySigned,
	StatusInReview,
	StatusAcceptedByCounsellor,
	StatusAcceptedByValidator,
	StatusRejected,
	StatusCancelled,
	StatusDeprecated,
}

var validConventionStatuses = func() map[ConventionStatus]bool {
	m := make(map[ConventionStatus]bool, len(AllConventionStatuses))
	for _, s := range AllConventionStatuses {
		m[s] = true
	}
	return m
}()

// ParseConventionStatus constructs a ConventionStatus from external input.
func ParseConventionStatus(raw string) (ConventionStatus, error) {
	s := ConventionStatus(raw)
	if !validConventionStatuses[s] {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown convention status %q", raw)
	}
	return s, nil
}

// IsTerminal reports whether no further status transition is allowed.
func (s ConventionStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusDeprecated:
		return true
	case StatusDraft, StatusReadyToSign, StatusPartiallySigned,
		StatusInReview, StatusAcceptedByCounsellor, StatusAcceptedByValidator:
		return false
	}
	return false
}

// IsSignable reports whether signatories may record signatures in this
// status. A DRAFT must first be sent out for signature (READY_TO_SIGN).
func (s ConventionStatus) IsSignable() bool {
	switch s {
	case StatusReadyToSign, StatusPartiallySigned:
		return true
	case StatusDraft, StatusInReview, StatusAcceptedByCounsellor, StatusAcceptedByValidator,
		StatusRejected, StatusCancelled, StatusDeprecated:
		return false
	}
	return false
}

func (s ConventionStatus) String() string { return string(s) }
