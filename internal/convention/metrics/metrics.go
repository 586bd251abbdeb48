package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the convention lifecycle.
type Metrics struct {
	ConventionsCreated  prometheus.Counter
	TransitionsAccepted *prometheus.CounterVec
	TransitionsDenied   *prometheus.CounterVec
	SignaturesRecorded  prometheus.Counter
	FullySigned         prometheus.Counter
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConventionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "immersion_conventions_created_total",
			Help: "Total number of conventions created",
		}),
		TransitionsAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "immersion_convention_transitions_total",
			Help: "Accepted convention status transitions by target status",
		}, []string{"to"}),
		TransitionsDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "immersion_convention_transitions_denied_total",
			Help: "Denied convention status transitions by error code",
		}, []string{"code"}),
		SignaturesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "immersion_convention_signatures_total",
			Help: "Total number of signatures recorded",
		}),
		FullySigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "immersion_conventions_fully_signed_total",
			Help: "Total number of conventions reaching full signature",
		}),
	}
}
