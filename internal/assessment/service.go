package assessment

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
	dErrors "immersion/pkg/domain-errors"
	"immersion/pkg/platform/sentinel"
	"immersion/pkg/requestcontext"
)

// Store persists assessments.
type Store interface {
	Create(ctx context.Context, a *Assessment) error
	GetByConventionID(ctx context.Context, conventionID id.ConventionID) (*Assessment, error)
	ExistsForConvention(ctx context.Context, conventionID id.ConventionID) (bool, error)
	Delete(ctx context.Context, conventionID id.ConventionID) error
}

// ConventionStore resolves and locks the assessed convention.
type ConventionStore interface {
	GetByIDForUpdate(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error)
}

// AgencyStore resolves the convention's agency for the email-standing check.
type AgencyStore interface {
	GetByID(ctx context.Context, agencyID id.AgencyID) (*agency.Agency, error)
}

// EventPublisher appends domain events to the outbox within the ambient
// transaction.
type EventPublisher interface {
	Emit(ctx context.Context, topic string, payload any) error
}

// StoreTx runs a unit of work.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Service orchestrates the assessment sub-lifecycle.
type Service struct {
	assessments Store
	conventions ConventionStore
	agencies    AgencyStore
	events      EventPublisher
	tx          StoreTx
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger injects the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics injects the assessment metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTx injects the unit-of-work runner.
func WithTx(tx StoreTx) Option {
	return func(s *Service) { s.tx = tx }
}

// NewService constructs the assessment orchestrator.
func NewService(assessments Store, conventions ConventionStore, agencies AgencyStore, events EventPublisher, opts ...Option) *Service {
	s := &Service{
		assessments: assessments,
		conventions: conventions,
		agencies:    agencies,
		events:      events,
		tracer:      otel.Tracer("immersion/assessment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = noTx{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// CreateRequest carries the report form plus the acting identity.
type CreateRequest struct {
	ConventionID id.ConventionID
	Params       CreateParams
	Role         id.Role
	Email        string
}

// Create files the completion report for a validated convention.
//
// Entitlement: the establishment tutor acting through the convention's magic
// link, a counsellor or validator with email standing on the agency, or a
// back-office admin. The convention row stays locked for the exists-then-
// create cycle so two concurrent reports cannot both pass the check.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Assessment, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.Create",
		trace.WithAttributes(attribute.String("convention.id", req.ConventionID.String())))
	defer span.End()

	var created *Assessment
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.conventions.GetByIDForUpdate(txCtx, req.ConventionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "convention %s not found", req.ConventionID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "locking convention")
		}

		if err := s.checkEntitlement(txCtx, c, req.Role, req.Email); err != nil {
			return err
		}
		if c.Status != id.StatusAcceptedByValidator {
			return dErrors.Newf(dErrors.CodeBadRequest, "a %s convention cannot be assessed", c.Status)
		}
		exists, err := s.assessments.ExistsForConvention(txCtx, c.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "checking existing assessment")
		}
		if exists {
			return dErrors.Newf(dErrors.CodeConflict, "convention %s already has an assessment", c.ID)
		}

		now := requestcontext.Now(txCtx)
		a, err := New(id.NewAssessmentID(), c, req.Params, req.Role, req.Email, now)
		if err != nil {
			return err
		}
		if err := s.assessments.Create(txCtx, a); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeConflict, "convention %s already has an assessment", c.ID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "storing assessment")
		}
		if err := s.events.Emit(txCtx, TopicCreated, CreatedEvent{
			ConventionID:              c.ID,
			AssessmentID:              a.ID,
			Status:                    a.Status,
			NumberOfHoursActuallyMade: a.NumberOfHoursActuallyMade,
			Role:                      req.Role,
			Email:                     req.Email,
			At:                        now,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "emitting assessment created")
		}

		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Created.Inc()
	}
	s.logger.InfoContext(ctx, "assessment created",
		"convention_id", created.ConventionID,
		"assessment_id", created.ID,
		"status", created.Status,
	)
	return created, nil
}

// DeleteRequest is the administrative removal of a report.
type DeleteRequest struct {
	ConventionID  id.ConventionID
	Justification string
	Role          id.Role
	Email         string
}

// Delete removes the convention's report. Back-office admins only, with a
// mandatory justification carried on the emitted event.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) error {
	ctx, span := s.tracer.Start(ctx, "assessment.Delete",
		trace.WithAttributes(attribute.String("convention.id", req.ConventionID.String())))
	defer span.End()

	if req.Role != id.RoleBackOfficeAdmin {
		return dErrors.New(dErrors.CodeForbidden, "only a back-office admin may delete an assessment")
	}
	if req.Justification == "" {
		return dErrors.New(dErrors.CodeBadRequest, "deleting an assessment requires a justification")
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.assessments.GetByConventionID(txCtx, req.ConventionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "convention %s has no assessment", req.ConventionID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "resolving assessment")
		}
		if err := s.assessments.Delete(txCtx, req.ConventionID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "deleting assessment")
		}
		return s.events.Emit(txCtx, TopicDeleted, DeletedEvent{
			ConventionID:  a.ConventionID,
			AssessmentID:  a.ID,
			Justification: req.Justification,
			Role:          req.Role,
			Email:         req.Email,
			At:            requestcontext.Now(txCtx),
		})
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.Deleted.Inc()
	}
	s.logger.InfoContext(ctx, "assessment deleted",
		"convention_id", req.ConventionID,
		"role", req.Role,
	)
	return nil
}

// GetByConventionID resolves the convention's report.
func (s *Service) GetByConventionID(ctx context.Context, conventionID id.ConventionID) (*Assessment, error) {
	a, err := s.assessments.GetByConventionID(ctx, conventionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "convention %s has no assessment", conventionID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolving assessment")
	}
	return a, nil
}

func (s *Service) checkEntitlement(ctx context.Context, c *models.Convention, role id.Role, email string) error {
	switch role {
	case id.RoleBackOfficeAdmin:
		return nil
	case id.RoleEstablishmentRepresentative:
		actor := requestcontext.Actor(ctx)
		if actor.IsMagicLink() && actor.ConventionID == c.ID && email == c.EstablishmentTutorEmail {
			return nil
		}
		return dErrors.New(dErrors.CodeForbidden, "only the establishment tutor may file this assessment")
	case id.RoleCounsellor, id.RoleValidator:
		a, err := s.agencies.GetByID(ctx, c.AgencyID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeInternal, "convention %s references unknown agency %s", c.ID, c.AgencyID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "resolving agency")
		}
		if role == id.RoleCounsellor && a.HasCounsellor(email) {
			return nil
		}
		if role == id.RoleValidator && a.HasValidator(email) {
			return nil
		}
		return dErrors.Newf(dErrors.CodeForbidden, "%s is not notified on agency %s", email, a.ID)
	}
	return dErrors.Newf(dErrors.CodeForbidden, "role %s may not file an assessment", role)
}
