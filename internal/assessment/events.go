package assessment

import (
	"time"

	id "immersion/pkg/domain"
)

// Outbox topics emitted by the assessment sub-lifecycle.
const (
	TopicCreated = "assessment.created"
	TopicDeleted = "assessment.deleted"
)

// CreatedEvent announces a filed report, with the triggering actor.
type CreatedEvent struct {
	ConventionID              id.ConventionID `json:"convention_id"`
	AssessmentID              id.AssessmentID `json:"assessment_id"`
	Status                    Status          `json:"status"`
	NumberOfHoursActuallyMade float64         `json:"number_of_hours_actually_made"`
	Role                      id.Role         `json:"role"`
	Email                     string          `json:"email"`
	At                        time.Time       `json:"at"`
}

// DeletedEvent announces an administrative deletion with its justification.
type DeletedEvent struct {
	ConventionID  id.ConventionID `json:"convention_id"`
	AssessmentID  id.AssessmentID `json:"assessment_id"`
	Justification string          `json:"justification"`
	Role          id.Role         `json:"role"`
	Email         string          `json:"email"`
	At            time.Time       `json:"at"`
}
