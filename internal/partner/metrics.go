package partner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the partner broadcast pipeline.
type Metrics struct {
	Broadcasts *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "immersion_partner_broadcasts_total",
			Help: "Partner broadcast outcomes by sync status",
		}, []string{"outcome"}),
	}
}
