package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks dashboard query cost and cache effectiveness.
type Metrics struct {
	CacheLookups      *prometheus.CounterVec
	BreakdownDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "technovit_stats_cache_lookups_total",
			Help: "Stats cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		BreakdownDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "technovit_event_breakdown_duration_seconds",
			Help:    "Duration of the per-event breakdown fan-out",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) ObserveCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveBreakdown(start time.Time) {
	m.BreakdownDuration.Observe(time.Since(start).Seconds())
}
