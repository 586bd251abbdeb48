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

// StatusChangeRequest is a direct actor request to move one convention to a
// target status.
type StatusChangeRequest struct {
	ConventionID  id.ConventionID
	Target        id.ConventionStatus
	Role          id.Role
	Justification string
	Validator     models.ValidatorName
}

// RequestStatusChange moves a convention through the transition table.
//
// The whole validate-then-mutate cycle runs inside one unit of work with the
// aggregate row locked, so concurrent requests on the same convention
// serialize: the second one revalidates against the committed status and is
// rejected with the right code instead of overwriting the first.
func (s *Service) RequestStatusChange(ctx context.Context, req StatusChangeRequest) (*models.Convention, error) {
	ctx, span := s.tracer.Start(ctx, "convention.RequestStatusChange",
		trace.WithAttributes(
			attribute.String("convention.id", req.ConventionID.String()),
			attribute.String("convention.target_status", string(req.Target)),
			attribute.String("actor.role", string(req.Role)),
		))
	defer span.End()

	if err := s.checkActorScope(ctx, req.ConventionID); err != nil {
		s.denied(string(dErrors.CodeForbidden))
		return nil, err
	}

	var updated *models.Convention
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.conventions.GetByIDForUpdate(txCtx, req.ConventionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "convention %s not found", req.ConventionID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "locking convention")
		}

		transition := models.TransitionRequest{
			Target:        req.Target,
			Role:          req.Role,
			Justification: req.Justification,
			Validator:     req.Validator,
		}
		if err := c.CanTransition(transition); err != nil {
			return err
		}
		if err := s.checkCounsellorStep(txCtx, c, req.Target); err != nil {
			return err
		}
		if err := s.checkNoAssessment(txCtx, c, req.Target); err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		previous := c.Status
		c.ApplyTransition(transition, now)

		if err := s.conventions.Update(txCtx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "storing transition")
		}
		if err := s.events.Emit(txCtx, models.TopicStatusChanged, models.StatusChangedEvent{
			ConventionID:  c.ID,
			AgencyID:      c.AgencyID,
			From:          previous,
			To:            c.Status,
			Role:          req.Role,
			Justification: req.Justification,
			At:            now,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "emitting status change")
		}

		updated = c
		return nil
	})
	if err != nil {
		s.denied(string(dErrors.CodeOf(err)))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TransitionsAccepted.WithLabelValues(string(req.Target)).Inc()
	}
	s.logger.InfoContext(ctx, "convention status changed",
		"convention_id", updated.ID,
		"to", updated.Status,
		"role", req.Role,
	)
	return updated, nil
}

// checkActorScope rejects magic-link actors acting outside the single
// convention their link was issued for.
func (s *Service) checkActorScope(ctx context.Context, conventionID id.ConventionID) error {
	actor := requestcontext.Actor(ctx)
	if actor.IsMagicLink() && actor.ConventionID != conventionID {
		return dErrors.New(dErrors.CodeForbidden, "link is not valid for this convention")
	}
	return nil
}

// checkCounsellorStep rejects ACCEPTED_BY_COUNSELLOR on agencies that
// validate in a single step. Only agencies referring to a parent validating
// agency review in two steps.
func (s *Service) checkCounsellorStep(ctx context.Context, c *models.Convention, target id.ConventionStatus) error {
	if target != id.StatusAcceptedByCounsellor {
		return nil
	}
	a, err := s.agencies.GetByID(ctx, c.AgencyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeInternal, "convention %s references unknown agency %s", c.ID, c.AgencyID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "resolving agency")
	}
	if !a.RequiresCounsellorStep() {
		return dErrors.Newf(dErrors.CodeForbidden, "agency %s validates in a single step", a.ID)
	}
	return nil
}

// checkNoAssessment blocks cancellation once an assessment exists: the
// immersion demonstrably happened.
func (s *Service) checkNoAssessment(ctx context.Context, c *models.Convention, target id.ConventionStatus) error {
	if target != id.StatusCancelled {
		return nil
	}
	exists, err := s.assessments.ExistsForConvention(ctx, c.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "checking assessment")
	}
	if exists {
		return dErrors.New(dErrors.CodeForbidden, "a convention with an assessment cannot be cancelled")
	}
	return nil
}
