package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the registration lifecycle.
type Metrics struct {
	Created        *prometheus.CounterVec
	Responses      *prometheus.CounterVec
	Removals       *prometheus.CounterVec
	Payments       prometheus.Counter
	CreateDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Created: f.NewCounterVec(prometheus.CounterOpts{
			Name: "technovit_registrations_created_total",
			Help: "Registrations created by initial payment status",
		}, []string{"payment_status"}),
		Responses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "technovit_invitation_responses_total",
			Help: "Invitation accept/decline actions",
		}, []string{"action"}),
		Removals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "technovit_registration_removals_total",
			Help: "Registration deletions by creators and withdrawals by members",
		}, []string{"kind"}),
		Payments: f.NewCounter(prometheus.CounterOpts{
			Name: "technovit_payments_confirmed_total",
			Help: "Registrations moved from pending to paid",
		}),
		CreateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "technovit_registration_create_duration_seconds",
			Help:    "Duration of CreateRegistration including team email resolution",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementCreated(paymentStatus string) {
	m.Created.WithLabelValues(paymentStatus).Inc()
}

func (m *Metrics) IncrementResponse(action string) {
	m.Responses.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementRemoval(kind string) {
	m.Removals.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementPayment() {
	m.Payments.Inc()
}

// ObserveCreate records the duration of a create call started at start.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}
