// Package agency holds the validating agencies conventions are attached to.
package agency

import (
	"slices"
	"time"

	id "immersion/pkg/domain"
)

// Kind distinguishes agencies whose validated conventions are broadcast to
// the national employment partner from the rest.
type Kind string

const (
	// KindEmploymentPartner marks agencies of the national employment
	// network: their validated conventions must reach the partner system.
	KindEmploymentPartner Kind = "employment-partner"
	KindMissionLocale     Kind = "mission-locale"
	KindCapEmploi         Kind = "cap-emploi"
	KindOther             Kind = "other"
)

// Agency validates conventions. CounsellorEmails and ValidatorEmails carry
// the "notified by email" standing used to entitle agency-side actors.
type Agency struct {
	ID   id.AgencyID `json:"id"`
	Name string      `json:"name"`
	Kind Kind        `json:"kind"`

	CounsellorEmails []string `json:"counsellor_emails"`
	ValidatorEmails  []string `json:"validator_emails"`

	// RefersToAgencyID links a structure to the agency that validates on
	// its behalf. Its presence means conventions need the counsellor
	// pre-validation step before final validation.
	RefersToAgencyID *id.AgencyID `json:"refers_to_agency_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequiresCounsellorStep reports whether the two-step validation applies.
func (a *Agency) RequiresCounsellorStep() bool {
	return a.RefersToAgencyID != nil
}

// IsEmploymentPartner reports whether validated conventions of this agency
// are broadcast to the partner system.
func (a *Agency) IsEmploymentPartner() bool {
	return a.Kind == KindEmploymentPartner
}

// HasCounsellor reports whether the email belongs to a notified counsellor.
func (a *Agency) HasCounsellor(email string) bool {
	return slices.Contains(a.CounsellorEmails, email)
}

// HasValidator reports whether the email belongs to a notified validator.
func (a *Agency) HasValidator(email string) bool {
	return slices.Contains(a.ValidatorEmails, email)
}

// Clone returns a deep copy so the in-memory store never aliases the caller.
func (a *Agency) Clone() *Agency {
	out := *a
	out.CounsellorEmails = append([]string(nil), a.CounsellorEmails...)
	out.ValidatorEmails = append([]string(nil), a.ValidatorEmails...)
	if a.RefersToAgencyID != nil {
		rid := *a.RefersToAgencyID
		out.RefersToAgencyID = &rid
	}
	return &out
}
