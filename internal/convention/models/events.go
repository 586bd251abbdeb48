package models

import (
	"time"

	id "immersion/pkg/domain"
)

// Outbox topics emitted by the convention lifecycle. Downstream consumers
// (notification dispatch, partner broadcast) subscribe by topic.
const (
	TopicStatusChanged   = "convention.status_changed"
	TopicPartiallySigned = "convention.partially_signed"
	TopicFullySigned     = "convention.fully_signed"
)

// StatusChangedEvent is emitted exactly once per accepted transition,
// carrying old/new status, the acting role and the request timestamp.
type StatusChangedEvent struct {
	ConventionID  id.ConventionID     `json:"convention_id"`
	AgencyID      id.AgencyID         `json:"agency_id"`
	From          id.ConventionStatus `json:"from"`
	To            id.ConventionStatus `json:"to"`
	Role          id.Role             `json:"role"`
	Justification string              `json:"justification,omitempty"`
	At            time.Time           `json:"at"`
}

// PartiallySignedEvent is emitted for each signature that does not complete
// the set.
type PartiallySignedEvent struct {
	ConventionID id.ConventionID `json:"convention_id"`
	Role         id.Role         `json:"role"`
	At           time.Time       `json:"at"`
}

// FullySignedEvent is emitted exactly once, on the signature that tips the
// convention into IN_REVIEW.
type FullySignedEvent struct {
	ConventionID id.ConventionID `json:"convention_id"`
	At           time.Time       `json:"at"`
}
