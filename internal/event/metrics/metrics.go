package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks event administration outcomes.
type Metrics struct {
	Patches *prometheus.CounterVec
	Created prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Patches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "technovit_event_patches_total",
			Help: "Event patch attempts by outcome (applied, denied, pin_denied, rejected)",
		}, []string{"outcome"}),
		Created: f.NewCounter(prometheus.CounterOpts{
			Name: "technovit_events_created_total",
			Help: "Events created",
		}),
	}
}

func (m *Metrics) ObservePatch(outcome string) {
	m.Patches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementCreated() {
	m.Created.Inc()
}
