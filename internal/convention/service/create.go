package service

import (
	"context"
	"errors"

	"immersion/internal/convention/models"
	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
	"immersion/pkg/platform/sentinel"
	"immersion/pkg/requestcontext"
)

// Create validates the form data against the aggregate invariants and stores
// a new DRAFT convention. The referenced agency must exist.
func (s *Service) Create(ctx context.Context, p models.CreateParams) (*models.Convention, error) {
	ctx, span := s.tracer.Start(ctx, "convention.Create")
	defer span.End()

	if _, err := s.agencies.GetByID(ctx, p.AgencyID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "agency %s does not exist", p.AgencyID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolving agency")
	}

	c, err := models.New(id.NewConventionID(), p, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.conventions.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "storing convention")
	}

	if s.metrics != nil {
		s.metrics.ConventionsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "convention created",
		"convention_id", c.ID,
		"agency_id", c.AgencyID,
	)
	return c, nil
}

// GetByID resolves one convention, translating storage sentinels to the
// domain error taxonomy.
func (s *Service) GetByID(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error) {
	c, err := s.conventions.GetByID(ctx, conventionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "convention %s not found", conventionID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolving convention")
	}
	return c, nil
}
