// Package partner pushes validated conventions to the national employment
// partner system and reconciles the ones that failed. Broadcast failures are
// recorded as data, never propagated into the transition path: the local
// status change stays durable whatever the partner API does.
package partner

import (
	"context"
	"time"

	id "immersion/pkg/domain"
)

// ConventionPayload is the broadcast body. TotalHours comes from the
// schedule so the duration the partner sees always matches the one the
// assessment arithmetic starts from.
type ConventionPayload struct {
	ConventionID       id.ConventionID `json:"convention_id"`
	ExternalID         string          `json:"external_id,omitempty"`
	AgencyID           id.AgencyID     `json:"agency_id"`
	Status             string          `json:"status"`
	DateStart          time.Time       `json:"date_start"`
	DateEnd            time.Time       `json:"date_end"`
	TotalHours         float64         `json:"total_hours"`
	EstablishmentSiret string          `json:"establishment_siret"`
	BeneficiaryEmail   string          `json:"beneficiary_email"`
}

// Acknowledgement is the partner's answer to a broadcast. ExternalID is the
// partner-side reference assigned on first acceptance.
type Acknowledgement struct {
	ExternalID string `json:"external_id"`
	Message    string `json:"message,omitempty"`
}

// Gateway is the partner broadcast interface. A nil error means the partner
// accepted the convention; any other outcome is an error the caller records.
type Gateway interface {
	NotifyConventionUpdated(ctx context.Context, payload ConventionPayload) (Acknowledgement, error)
}
