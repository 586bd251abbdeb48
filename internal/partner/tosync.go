package partner

import (
	"context"
	"time"

	id "immersion/pkg/domain"
)

// SyncStatus tracks one convention's broadcast reconciliation state.
// TO_PROCESS and ERROR re-enter the resync queue; SUCCESS and SKIP are
// terminal.
type SyncStatus string

const (
	SyncToProcess SyncStatus = "TO_PROCESS"
	SyncSuccess   SyncStatus = "SUCCESS"
	SyncSkip      SyncStatus = "SKIP"
	SyncError     SyncStatus = "ERROR"
)

// ConventionToSync is one convention's pending broadcast to the partner.
type ConventionToSync struct {
	ConventionID id.ConventionID `json:"convention_id"`
	Status       SyncStatus      `json:"status"`
	ProcessDate  *time.Time      `json:"process_date,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// ToSyncStore persists the reconciliation queue.
type ToSyncStore interface {
	// Save upserts the row; the queue holds one entry per convention.
	Save(ctx context.Context, row ConventionToSync) error
	GetByConventionID(ctx context.Context, conventionID id.ConventionID) (ConventionToSync, error)
	// ListByStatuses returns up to limit rows in the given statuses, oldest
	// process date first (never processed rows first of all).
	ListByStatuses(ctx context.Context, statuses []SyncStatus, limit int) ([]ConventionToSync, error)
}
