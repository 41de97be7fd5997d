package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	// Registration outcomes by result ("confirmed", "pending") or rejection
	// reason ("capacity_exceeded", "closed", "validation_failed", ...)
	RegistrationOutcome *prometheus.CounterVec

	// Lifecycle transitions by target state
	Transitions *prometheus.CounterVec

	// End-to-end register() latency including inventory and persistence
	RegisterLatency prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		RegistrationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysvs_registration_outcomes_total",
			Help: "Total registration attempts by outcome",
		}, []string{"outcome"}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysvs_registration_transitions_total",
			Help: "Total lifecycle transitions by target status",
		}, []string{"target"}),

		RegisterLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ysvs_registration_register_duration_seconds",
			Help:    "Duration of the full registration admission path",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementOutcome records one registration attempt result.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.RegistrationOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementTransition records one committed lifecycle transition.
func (m *Metrics) IncrementTransition(target string) {
	if m != nil {
		m.Transitions.WithLabelValues(target).Inc()
	}
}

// ObserveRegisterLatency records the duration of one register call.
func (m *Metrics) ObserveRegisterLatency(d time.Duration) {
	if m != nil {
		m.RegisterLatency.Observe(d.Seconds())
	}
}
