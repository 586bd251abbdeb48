package assessment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the assessment sub-lifecycle.
type Metrics struct {
	Created prometheus.Counter
	Deleted prometheus.Counter
}

// NewMetrics creates a Metrics instance registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "immersion_assessments_created_total",
			Help: "Total number of assessments filed",
		}),
		Deleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "immersion_assessments_deleted_total",
			Help: "Total number of assessments deleted by back-office admins",
		}),
	}
}
