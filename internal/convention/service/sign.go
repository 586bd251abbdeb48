package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"immersion/internal/convention/models"
	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
	"immersion/pkg/platform/sentinel"
	"immersion/pkg/requestcontext"
)

// SignRequest records one signatory's signature on a convention.
type SignRequest struct {
	ConventionID id.ConventionID
	Role         id.Role
}

// Sign records the signature and re-evaluates the aggregate status. Each
// signature emits a status-changed event when the status moves, plus a
// partially-signed event, or a fully-signed event on exactly the signature
// that completes the set and tips the convention into review.
func (s *Service) Sign(ctx context.Context, req SignRequest) (*models.Convention, error) {
	ctx, span := s.tracer.Start(ctx, "convention.Sign",
		trace.WithAttributes(
			attribute.String("convention.id", req.ConventionID.String()),
			attribute.String("actor.role", string(req.Role)),
		))
	defer span.End()

	if err := s.checkActorScope(ctx, req.ConventionID); err != nil {
		return nil, err
	}

	var (
		updated *models.Convention
		result  models.SignatureResult
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.conventions.GetByIDForUpdate(txCtx, req.ConventionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "convention %s not found", req.ConventionID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "locking convention")
		}

		now := requestcontext.Now(txCtx)
		result, err = c.RecordSignature(req.Role, now)
		if err != nil {
			return err
		}

		if err := s.conventions.Update(txCtx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "storing signature")
		}

		if result.Current != result.Previous {
			if err := s.events.Emit(txCtx, models.TopicStatusChanged, models.StatusChangedEvent{
				ConventionID: c.ID,
				AgencyID:     c.AgencyID,
				From:         result.Previous,
				To:           result.Current,
				Role:         req.Role,
				At:           now,
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "emitting status change")
			}
		}
		if result.FullySigned {
			if err := s.events.Emit(txCtx, models.TopicFullySigned, models.FullySignedEvent{
				ConventionID: c.ID,
				At:           now,
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "emitting fully signed")
			}
		} else {
			if err := s.events.Emit(txCtx, models.TopicPartiallySigned, models.PartiallySignedEvent{
				ConventionID: c.ID,
				Role:         req.Role,
				At:           now,
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "emitting partially signed")
			}
		}

		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SignaturesRecorded.Inc()
		if result.FullySigned {
			s.metrics.FullySigned.Inc()
		}
	}
	s.logger.InfoContext(ctx, "signature recorded",
		"convention_id", updated.ID,
		"role", req.Role,
		"status", updated.Status,
		"fully_signed", result.FullySigned,
	)
	return updated, nil
}
