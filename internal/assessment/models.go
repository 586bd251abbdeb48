// Package assessment holds the post-placement completion report: one per
// convention, filed after final validation, recording how much of the
// scheduled immersion actually happened.
package assessment

import (
	"time"

	"immersion/internal/convention/models"
	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
)

// Status is the completion outcome of the immersion.
type Status string

const (
	StatusCompleted          Status = "COMPLETED"
	StatusPartiallyCompleted Status = "PARTIALLY_COMPLETED"
)

// ParseStatus constructs a Status from external input.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusCompleted, StatusPartiallyCompleted:
		return s, nil
	}
	return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown assessment status %q", raw)
}

// Assessment is the completion report for one convention.
//
// Invariants: at most one per convention; NumberOfHoursActuallyMade equals
// the convention's total scheduled hours minus NumberOfMissedHours (the full
// scheduled total when COMPLETED); LastDayOfPresence is present exactly when
// partially completed and falls within the convention's date range.
type Assessment struct {
	ID           id.AssessmentID `json:"id"`
	ConventionID id.ConventionID `json:"convention_id"`

	Status            Status     `json:"status"`
	LastDayOfPresence *time.Time `json:"last_day_of_presence,omitempty"`

	NumberOfMissedHours       float64 `json:"number_of_missed_hours"`
	NumberOfHoursActuallyMade float64 `json:"number_of_hours_actually_made"`

	EstablishmentFeedback string `json:"establishment_feedback"`
	EstablishmentAdvice   string `json:"establishment_advice"`
	EndedWithAJob         bool   `json:"ended_with_a_job"`

	CreatedByRole  id.Role `json:"created_by_role"`
	CreatedByEmail string  `json:"created_by_email"`

	CreatedAt time.Time `json:"created_at"`
}

// CreateParams is the report form data.
type CreateParams struct {
	Status                Status
	LastDayOfPresence     *time.Time
	NumberOfMissedHours   float64
	EstablishmentFeedback string
	EstablishmentAdvice   string
	EndedWithAJob         bool
}

// New builds the report against the convention it assesses, deriving the
// hours actually made from the schedule.
func New(assessmentID id.AssessmentID, c *models.Convention, p CreateParams, role id.Role, email string, now time.Time) (*Assessment, error) {
	scheduled := c.TotalScheduledHours()

	switch p.Status {
	case StatusCompleted:
		if p.LastDayOfPresence != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "a completed assessment carries no last day of presence")
		}
		if p.NumberOfMissedHours != 0 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "a completed assessment has no missed hours")
		}
	case StatusPartiallyCompleted:
		if p.LastDayOfPresence == nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "a partially completed assessment requires the last day of presence")
		}
		day := *p.LastDayOfPresence
		if day.Before(c.DateStart) || day.After(c.DateEnd) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "last day of presence must fall within the convention dates")
		}
		if p.NumberOfMissedHours < 0 || p.NumberOfMissedHours > scheduled {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "missed hours must be between 0 and the %.2f scheduled hours", scheduled)
		}
	default:
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown assessment status %q", p.Status)
	}

	a := &Assessment{
		ID:                        assessmentID,
		ConventionID:              c.ID,
		Status:                    p.Status,
		NumberOfMissedHours:       p.NumberOfMissedHours,
		NumberOfHoursActuallyMade: scheduled - p.NumberOfMissedHours,
		EstablishmentFeedback:     p.EstablishmentFeedback,
		EstablishmentAdvice:       p.EstablishmentAdvice,
		EndedWithAJob:             p.EndedWithAJob,
		CreatedByRole:             role,
		CreatedByEmail:            email,
		CreatedAt:                 now,
	}
	if p.LastDayOfPresence != nil {
		day := *p.LastDayOfPresence
		a.LastDayOfPresence = &day
	}
	return a, nil
}

// Clone returns a deep copy so the in-memory store never aliases the caller.
func (a *Assessment) Clone() *Assessment {
	out := *a
	if a.LastDayOfPresence != nil {
		t := *a.LastDayOfPresence
		out.LastDayOfPresence = &t
	}
	return &out
}
