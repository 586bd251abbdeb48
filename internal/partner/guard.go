package partner

import (
	"context"
	"fmt"
	"log/slog"

	"immersion/pkg/platform/circuit"
)

// GuardedGateway wraps a Gateway with a circuit breaker. When the partner is
// down, broadcasts fail fast instead of piling up timeouts; the resulting
// ERROR rows are picked up by the resync job once the partner recovers.
type GuardedGateway struct {
	inner   Gateway
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewGuardedGateway decorates inner with the given breaker.
func NewGuardedGateway(inner Gateway, breaker *circuit.Breaker, logger *slog.Logger) *GuardedGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardedGateway{inner: inner, breaker: breaker, logger: logger}
}

// NotifyConventionUpdated forwards to the inner gateway unless the breaker is
// open.
func (g *GuardedGateway) NotifyConventionUpdated(ctx context.Context, payload ConventionPayload) (Acknowledgement, error) {
	if g.breaker.IsOpen() {
		return Acknowledgement{}, fmt.Errorf("partner: circuit %s is open", g.breaker.Name())
	}

	ack, err := g.inner.NotifyConventionUpdated(ctx, payload)
	if err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "partner circuit opened",
				"circuit", g.breaker.Name(),
				"error", err,
			)
		}
		return Acknowledgement{}, err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "partner circuit closed", "circuit", g.breaker.Name())
	}
	return ack, nil
}
