package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"immersion/internal/agency"
	"immersion/internal/assessment"
	"immersion/internal/convention/models"
	"immersion/internal/outbox"
	"immersion/internal/platform/config"
	id "immersion/pkg/domain"
)

// ConventionStore resolves the convention an event refers to.
type ConventionStore interface {
	GetByID(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error)
}

// AgencyStore resolves agency-side recipients.
type AgencyStore interface {
	GetByID(ctx context.Context, agencyID id.AgencyID) (*agency.Agency, error)
}

// Consumer turns outbox events into notifications. Send failures are logged
// and counted, never returned: a broken email provider must not make the
// outbox retry (and re-broadcast) the whole event.
type Consumer struct {
	conventions ConventionStore
	agencies    AgencyStore
	gateway     Gateway
	limiter     *RateLimiter
	cfg         config.NotificationConfig
	logger      *slog.Logger
	metrics     *Metrics
}

// ConsumerOption configures optional collaborators.
type ConsumerOption func(*Consumer)

// WithLogger injects the structured logger.
func WithLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = logger }
}

// WithMetrics injects the notification metrics.
func WithMetrics(m *Metrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

// NewConsumer builds the notification dispatcher.
func NewConsumer(conventions ConventionStore, agencies AgencyStore, gateway Gateway, limiter *RateLimiter, cfg config.NotificationConfig, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		conventions: conventions,
		agencies:    agencies,
		gateway:     gateway,
		limiter:     limiter,
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Deliver implements outbox.Sink.
func (c *Consumer) Deliver(ctx context.Context, event outbox.Event) error {
	switch event.Topic {
	case models.TopicStatusChanged:
		var payload models.StatusChangedEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("notification: decode %s: %w", event.Topic, err)
		}
		return c.onStatusChanged(ctx, payload)
	case models.TopicPartiallySigned:
		var payload models.PartiallySignedEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("notification: decode %s: %w", event.Topic, err)
		}
		return c.onPartiallySigned(ctx, payload)
	case models.TopicFullySigned:
		var payload models.FullySignedEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("notification: decode %s: %w", event.Topic, err)
		}
		return c.onFullySigned(ctx, payload)
	case assessment.TopicCreated:
		var payload assessment.CreatedEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("notification: decode %s: %w", event.Topic, err)
		}
		return c.onAssessmentCreated(ctx, payload)
	}
	return nil
}

func (c *Consumer) onStatusChanged(ctx context.Context, payload models.StatusChangedEvent) error {
	conv, err := c.conventions.GetByID(ctx, payload.ConventionID)
	if err != nil {
		return fmt.Errorf("notification: load convention %s: %w", payload.ConventionID, err)
	}

	switch payload.To {
	case id.StatusReadyToSign:
		c.sendEmail(ctx, signatureRequestEmail(conv))
		if sms := firstSignatureSMS(conv); sms != nil {
			c.sendSMS(ctx, *sms)
		}
	case id.StatusDraft:
		c.sendEmail(ctx, modificationRequestEmail(conv, payload.Justification))
	case id.StatusAcceptedByValidator:
		c.sendEmail(ctx, validatedEmail(conv))
	case id.StatusRejected:
		c.sendEmail(ctx, rejectedEmail(conv, payload.Justification))
	case id.StatusCancelled:
		c.sendEmail(ctx, cancelledEmail(conv, payload.Justification))
	}
	return nil
}

func (c *Consumer) onPartiallySigned(ctx context.Context, payload models.PartiallySignedEvent) error {
	conv, err := c.conventions.GetByID(ctx, payload.ConventionID)
	if err != nil {
		return fmt.Errorf("notification: load convention %s: %w", payload.ConventionID, err)
	}
	if email := signatureProgressEmail(conv); len(email.Recipients) > 0 {
		c.sendEmail(ctx, email)
	}
	return nil
}

func (c *Consumer) onFullySigned(ctx context.Context, payload models.FullySignedEvent) error {
	conv, err := c.conventions.GetByID(ctx, payload.ConventionID)
	if err != nil {
		return fmt.Errorf("notification: load convention %s: %w", payload.ConventionID, err)
	}
	emails, err := c.agencyEmails(ctx, conv.AgencyID)
	if err != nil {
		return err
	}
	if len(emails) > 0 {
		c.sendEmail(ctx, readyForReviewEmail(conv, emails))
	}
	return nil
}

func (c *Consumer) onAssessmentCreated(ctx context.Context, payload assessment.CreatedEvent) error {
	conv, err := c.conventions.GetByID(ctx, payload.ConventionID)
	if err != nil {
		return fmt.Errorf("notification: load convention %s: %w", payload.ConventionID, err)
	}
	emails, err := c.agencyEmails(ctx, conv.AgencyID)
	if err != nil {
		return err
	}
	if len(emails) > 0 {
		c.sendEmail(ctx, assessmentCreatedEmail(conv, emails))
	}
	return nil
}

func (c *Consumer) agencyEmails(ctx context.Context, agencyID id.AgencyID) ([]string, error) {
	a, err := c.agencies.GetByID(ctx, agencyID)
	if err != nil {
		return nil, fmt.Errorf("notification: load agency %s: %w", agencyID, err)
	}
	return append(append([]string{}, a.CounsellorEmails...), a.ValidatorEmails...), nil
}

func (c *Consumer) sendEmail(ctx context.Context, email Email) {
	if !c.limiter.Allow(ctx, "email", c.cfg.EmailPerMinute, time.Minute) {
		c.logger.WarnContext(ctx, "email rate limit reached, dropping", "kind", email.Kind)
		if c.metrics != nil {
			c.metrics.RateLimited.WithLabelValues("email").Inc()
		}
		return
	}
	if err := c.gateway.SendEmail(ctx, email); err != nil {
		c.logger.ErrorContext(ctx, "email send failed", "kind", email.Kind, "error", err)
		if c.metrics != nil {
			c.metrics.Failed.WithLabelValues("email").Inc()
		}
		return
	}
	if c.metrics != nil {
		c.metrics.Sent.WithLabelValues("email").Inc()
	}
}

func (c *Consumer) sendSMS(ctx context.Context, sms SMS) {
	if !c.limiter.Allow(ctx, "sms", c.cfg.SMSPerHour, time.Hour) {
		c.logger.WarnContext(ctx, "sms rate limit reached, dropping")
		if c.metrics != nil {
			c.metrics.RateLimited.WithLabelValues("sms").Inc()
		}
		return
	}
	if err := c.gateway.SendSMS(ctx, sms); err != nil {
		c.logger.ErrorContext(ctx, "sms send failed", "error", err)
		if c.metrics != nil {
			c.metrics.Failed.WithLabelValues("sms").Inc()
		}
		return
	}
	if c.metrics != nil {
		c.metrics.Sent.WithLabelValues("sms").Inc()
	}
}
