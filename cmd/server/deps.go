package main

import (
	"context"

	"immersion/internal/agency"
	"immersion/internal/assessment"
	"immersion/internal/convention/models"
	id "immersion/pkg/domain"
)

// The store unions below let run() pick postgres or in-memory backends once
// and hand the same value to every consumer, each of which declares the
// narrower interface it needs.

type conventionStore interface {
	Create(ctx context.Context, c *models.Convention) error
	GetByID(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error)
	GetByIDForUpdate(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error)
	Update(ctx context.Context, c *models.Convention) error
}

type agencyStore interface {
	GetByID(ctx context.Context, agencyID id.AgencyID) (*agency.Agency, error)
	Update(ctx context.Context, a *agency.Agency) error
}

type assessmentStore interface {
	Create(ctx context.Context, a *assessment.Assessment) error
	GetByConventionID(ctx context.Context, conventionID id.ConventionID) (*assessment.Assessment, error)
	ExistsForConvention(ctx context.Context, conventionID id.ConventionID) (bool, error)
	Delete(ctx context.Context, conventionID id.ConventionID) error
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}
