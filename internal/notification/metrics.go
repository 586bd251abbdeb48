package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts notification outcomes per channel.
type Metrics struct {
	Sent        *prometheus.CounterVec
	Failed      *prometheus.CounterVec
	RateLimited *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Sent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "immersion_notifications_sent_total",
			Help: "Notifications sent by channel",
		}, []string{"channel"}),
		Failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "immersion_notifications_failed_total",
			Help: "Notification send failures by channel",
		}, []string{"channel"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "immersion_notifications_rate_limited_total",
			Help: "Notifications dropped by the rate limiter, by channel",
		}, []string{"channel"}),
	}
}
