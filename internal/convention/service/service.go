// Package service orchestrates the convention lifecycle: creation, direct
// status transitions and signature recording. Every mutation runs as one
// unit of work: the aggregate write and the emitted domain events commit or
// roll back together; notification and partner broadcast consume the events
// downstream and can never fail a transition.
package service

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"immersion/internal/agency"
	conventionmetrics "immersion/internal/convention/metrics"
	"immersion/internal/convention/models"
	id "immersion/pkg/domain"
)

// ConventionStore persists convention aggregates.
type ConventionStore interface {
	Create(ctx context.Context, c *models.Convention) error
	GetByID(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error)
	GetByIDForUpdate(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error)
	Update(ctx context.Context, c *models.Convention) error
}

// AgencyStore resolves the agency a convention is attached to.
type AgencyStore interface {
	GetByID(ctx context.Context, agencyID id.AgencyID) (*agency.Agency, error)
}

// AssessmentChecker reports whether a convention already has an assessment.
// Cancellation is blocked once one exists.
type AssessmentChecker interface {
	ExistsForConvention(ctx context.Context, conventionID id.ConventionID) (bool, error)
}

// EventPublisher appends domain events to the outbox within the ambient
// transaction.
type EventPublisher interface {
	Emit(ctx context.Context, topic string, payload any) error
}

// StoreTx runs a unit of work; the postgres implementation wraps a SQL
// transaction carried in the context, the in-memory one serializes callers.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Service is the convention transition orchestrator.
type Service struct {
	conventions ConventionStore
	agencies    AgencyStore
	assessments AssessmentChecker
	events      EventPublisher
	tx          StoreTx
	logger      *slog.Logger
	metrics     *conventionmetrics.Metrics
	tracer      trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger injects the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics injects the convention metrics.
func WithMetrics(m *conventionmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTx injects the unit-of-work runner. Defaults to the in-memory runner.
func WithTx(tx StoreTx) Option {
	return func(s *Service) { s.tx = tx }
}

// New constructs the transition orchestrator.
func New(conventions ConventionStore, agencies AgencyStore, assessments AssessmentChecker, events EventPublisher, opts ...Option) *Service {
	s := &Service{
		conventions: conventions,
		agencies:    agencies,
		assessments: assessments,
		events:      events,
		tracer:      otel.Tracer("immersion/convention"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewInMemoryTx()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// InMemoryTx serializes units of work with a mutex. It gives the in-memory
// stores the same "one transition at a time per process" guarantee the
// postgres row lock gives per convention.
type InMemoryTx struct {
	mu sync.Mutex
}

// NewInMemoryTx builds the in-memory unit-of-work runner.
func NewInMemoryTx() *InMemoryTx {
	return &InMemoryTx{}
}

// RunInTx executes fn while holding the lock.
func (t *InMemoryTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

func (s *Service) denied(code string) {
	if s.metrics != nil {
		s.metrics.TransitionsDenied.WithLabelValues(code).Inc()
	}
}
