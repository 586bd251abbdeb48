// Package notification turns convention lifecycle events into emails and SMS
// for the parties and the agency. Dispatch is best-effort: sends are
// rate-limited, failures are logged and counted, and nothing here can fail
// the transition that triggered the event.
package notification

import (
	"context"
	"log/slog"
)

// Email is one templated outbound email.
type Email struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Kind       string   `json:"kind"`
}

// SMS is one outbound text message.
type SMS struct {
	PhoneNumber string `json:"phone_number"`
	Body        string `json:"body"`
}

// Gateway sends notifications. Implementations rate-limit and retry
// internally; the consumer treats every send as fire-and-forget.
type Gateway interface {
	SendEmail(ctx context.Context, email Email) error
	SendSMS(ctx context.Context, sms SMS) error
}

// LogGateway writes notifications to the log instead of sending them. Used
// in local development and as the default when no provider is configured.
type LogGateway struct {
	logger *slog.Logger
}

// NewLogGateway builds the logging gateway.
func NewLogGateway(logger *slog.Logger) *LogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogGateway{logger: logger}
}

// SendEmail logs the email.
func (g *LogGateway) SendEmail(ctx context.Context, email Email) error {
	g.logger.InfoContext(ctx, "email notification",
		"kind", email.Kind,
		"recipients", email.Recipients,
		"subject", email.Subject,
	)
	return nil
}

// SendSMS logs the SMS.
func (g *LogGateway) SendSMS(ctx context.Context, sms SMS) error {
	g.logger.InfoContext(ctx, "sms notification", "phone", sms.PhoneNumber)
	return nil
}
