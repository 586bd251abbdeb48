package partner

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"immersion/internal/agency"
	"immersion/internal/convention/models"
	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
	"immersion/pkg/requestcontext"
)

const serviceName = "partner-broadcast"

// ConventionStore resolves conventions and persists the partner reference.
type ConventionStore interface {
	GetByID(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error)
	Update(ctx context.Context, c *models.Convention) error
}

// AgencyStore resolves the convention's agency to decide whether the partner
// cares about it.
type AgencyStore interface {
	GetByID(ctx context.Context, agencyID id.AgencyID) (*agency.Agency, error)
}

// Broadcaster pushes one convention at a time to the partner and records the
// outcome on the reconciliation queue. Failures become ERROR rows plus a
// broadcast error entry; they never surface to the caller.
type Broadcaster struct {
	gateway     Gateway
	conventions ConventionStore
	agencies    AgencyStore
	tosync      ToSyncStore
	errors      ErrorStore
	enabled     bool
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
}

// BroadcasterOption configures optional collaborators.
type BroadcasterOption func(*Broadcaster)

// WithLogger injects the structured logger.
func WithLogger(logger *slog.Logger) BroadcasterOption {
	return func(b *Broadcaster) { b.logger = logger }
}

// WithMetrics injects the partner metrics.
func WithMetrics(m *Metrics) BroadcasterOption {
	return func(b *Broadcaster) { b.metrics = m }
}

// NewBroadcaster builds the partner broadcaster. enabled is the broadcast
// feature flag: when off every convention is skipped, not errored.
func NewBroadcaster(gateway Gateway, conventions ConventionStore, agencies AgencyStore, tosync ToSyncStore, errorStore ErrorStore, enabled bool, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		gateway:     gateway,
		conventions: conventions,
		agencies:    agencies,
		tosync:      tosync,
		errors:      errorStore,
		enabled:     enabled,
		tracer:      otel.Tracer("immersion/partner"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Process broadcasts one convention and saves the resulting sync row. The
// returned row reports the outcome; the error is non-nil only for local
// storage problems, never for a partner refusal.
func (b *Broadcaster) Process(ctx context.Context, conventionID id.ConventionID) (ConventionToSync, error) {
	ctx, span := b.tracer.Start(ctx, "partner.Process",
		trace.WithAttributes(attribute.String("convention.id", conventionID.String())))
	defer span.End()

	row := b.broadcastOne(ctx, conventionID)
	now := requestcontext.Now(ctx)
	row.ProcessDate = &now

	if b.metrics != nil {
		b.metrics.Broadcasts.WithLabelValues(string(row.Status)).Inc()
	}
	if err := b.tosync.Save(ctx, row); err != nil {
		return row, err
	}
	b.logger.InfoContext(ctx, "partner broadcast processed",
		"convention_id", conventionID,
		"outcome", row.Status,
		"reason", row.Reason,
	)
	return row, nil
}

// broadcastOne decides the outcome for one convention. SKIP is expected
// (wrong agency kind, feature off); ERROR covers everything else and is
// recorded for operators.
func (b *Broadcaster) broadcastOne(ctx context.Context, conventionID id.ConventionID) ConventionToSync {
	row := ConventionToSync{ConventionID: conventionID}

	if !b.enabled {
		row.Status = SyncSkip
		row.Reason = "partner broadcast is disabled"
		return row
	}

	c, err := b.conventions.GetByID(ctx, conventionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return b.errored(ctx, row, "convention not found")
		}
		return b.errored(ctx, row, "loading convention: "+err.Error())
	}

	a, err := b.agencies.GetByID(ctx, c.AgencyID)
	if err != nil {
		return b.errored(ctx, row, "loading agency: "+err.Error())
	}
	if !a.IsEmploymentPartner() {
		row.Status = SyncSkip
		row.Reason = "agency kind " + string(a.Kind) + " is not broadcast to the partner"
		return row
	}

	ack, err := b.gateway.NotifyConventionUpdated(ctx, ConventionPayload{
		ConventionID:       c.ID,
		ExternalID:         c.ExternalID,
		AgencyID:           c.AgencyID,
		Status:             string(c.Status),
		DateStart:          c.DateStart,
		DateEnd:            c.DateEnd,
		TotalHours:         c.TotalScheduledHours(),
		EstablishmentSiret: c.EstablishmentSiret,
		BeneficiaryEmail:   c.Signatories.Beneficiary.Email,
	})
	if err != nil {
		return b.errored(ctx, row, err.Error())
	}

	// The partner reference is assigned once, on first acceptance.
	if c.ExternalID == "" && ack.ExternalID != "" {
		c.ExternalID = ack.ExternalID
		c.UpdatedAt = requestcontext.Now(ctx)
		if err := b.conventions.Update(ctx, c); err != nil {
			return b.errored(ctx, row, "storing partner reference: "+err.Error())
		}
	}

	row.Status = SyncSuccess
	return row
}

func (b *Broadcaster) errored(ctx context.Context, row ConventionToSync, reason string) ConventionToSync {
	row.Status = SyncError
	row.Reason = reason
	saveErr := b.errors.Save(ctx, BroadcastError{
		ID:           id.NewBroadcastErrorID(),
		ConventionID: row.ConventionID,
		ServiceName:  serviceName,
		Message:      reason,
		OccurredAt:   requestcontext.Now(ctx),
	})
	if saveErr != nil {
		b.logger.ErrorContext(ctx, "partner: recording broadcast error failed",
			"convention_id", row.ConventionID,
			"error", saveErr,
		)
	}
	return row
}
