package partner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
	"immersion/pkg/platform/sentinel"
	"immersion/pkg/requestcontext"
)

// Report buckets every convention the resync batch touched, each in exactly
// one bucket.
type Report struct {
	Success []id.ConventionID `json:"success"`
	Skips   []SkippedItem     `json:"skips"`
	Errors  []ErroredItem     `json:"errors"`
}

// SkippedItem is one convention the partner does not want, with why.
type SkippedItem struct {
	ConventionID id.ConventionID `json:"convention_id"`
	Reason       string          `json:"reason"`
}

// ErroredItem is one convention whose broadcast failed, with the raw reason.
type ErroredItem struct {
	ConventionID id.ConventionID `json:"convention_id"`
	Reason       string          `json:"reason"`
}

// Total is how many conventions the batch attempted.
func (r *Report) Total() int {
	return len(r.Success) + len(r.Skips) + len(r.Errors)
}

// ResyncService replays failed and pending broadcasts. It owns the periodic
// retry of ERROR rows and the admin-triggered resync.
type ResyncService struct {
	tosync      ToSyncStore
	broadcaster *Broadcaster
	errorStore  ErrorStore
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewResyncService builds the reconciliation job.
func NewResyncService(tosync ToSyncStore, broadcaster *Broadcaster, errorStore ErrorStore, logger *slog.Logger) *ResyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResyncService{
		tosync:      tosync,
		broadcaster: broadcaster,
		errorStore:  errorStore,
		logger:      logger,
		tracer:      otel.Tracer("immersion/partner"),
	}
}

// Resync reprocesses up to limit conventions in TO_PROCESS or ERROR.
// Conventions are processed independently: one failure lands in the report's
// error bucket and the batch moves on. No lock is held across the batch.
func (s *ResyncService) Resync(ctx context.Context, limit int) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "partner.Resync",
		trace.WithAttributes(attribute.Int("resync.limit", limit)))
	defer span.End()

	if limit <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "resync limit must be positive")
	}

	rows, err := s.tosync.ListByStatuses(ctx, []SyncStatus{SyncToProcess, SyncError}, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing conventions to sync")
	}

	report := &Report{}
	for _, row := range rows {
		outcome, err := s.broadcaster.Process(ctx, row.ConventionID)
		if err != nil {
			report.Errors = append(report.Errors, ErroredItem{
				ConventionID: row.ConventionID,
				Reason:       err.Error(),
			})
			continue
		}
		switch outcome.Status {
		case SyncSuccess:
			report.Success = append(report.Success, row.ConventionID)
		case SyncSkip:
			report.Skips = append(report.Skips, SkippedItem{ConventionID: row.ConventionID, Reason: outcome.Reason})
		default:
			report.Errors = append(report.Errors, ErroredItem{ConventionID: row.ConventionID, Reason: outcome.Reason})
		}
	}

	s.logger.InfoContext(ctx, "partner resync finished",
		"attempted", report.Total(),
		"success", len(report.Success),
		"skipped", len(report.Skips),
		"errored", len(report.Errors),
	)
	return report, nil
}

// Run replays failed broadcasts on an interval until the context is
// cancelled.
func (s *ResyncService) Run(ctx context.Context, interval time.Duration, limit int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Resync(ctx, limit); err != nil {
				s.logger.ErrorContext(ctx, "partner resync failed", "error", err)
			}
		}
	}
}

// MarkErrorAsHandled lets an operator resolve one recorded broadcast
// failure.
func (s *ResyncService) MarkErrorAsHandled(ctx context.Context, errorID id.BroadcastErrorID) error {
	err := s.errorStore.MarkAsHandled(ctx, errorID, requestcontext.Now(ctx))
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "broadcast error %s not found", errorID)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marking broadcast error handled")
	}
	return nil
}

// ListUnhandledErrors surfaces unresolved broadcast failures to operators.
func (s *ResyncService) ListUnhandledErrors(ctx context.Context, limit int) ([]BroadcastError, error) {
	out, err := s.errorStore.ListUnhandled(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing broadcast errors")
	}
	return out, nil
}
