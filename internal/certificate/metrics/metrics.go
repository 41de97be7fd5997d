package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the certificate module.
type Metrics struct {
	// Issuance attempts by outcome ("issued", "conflict", "error")
	IssueOutcome *prometheus.CounterVec

	// Public verification lookups by result ("valid", "revoked", "not_found")
	VerifyOutcome *prometheus.CounterVec

	// Revocations performed
	Revocations prometheus.Counter

	// Per-item bulk issuance results ("generated", "skipped", "error")
	BulkItems *prometheus.CounterVec

	// Single issuance latency including rendering and artifact storage
	IssueLatency prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		IssueOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysvs_certificate_issue_total",
			Help: "Total certificate issuance attempts by outcome",
		}, []string{"outcome"}),

		VerifyOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysvs_certificate_verify_total",
			Help: "Total public verification lookups by result",
		}, []string{"result"}),

		Revocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ysvs_certificate_revocations_total",
			Help: "Total certificates revoked",
		}),

		BulkItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysvs_certificate_bulk_items_total",
			Help: "Per-item bulk issuance results",
		}, []string{"result"}),

		IssueLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ysvs_certificate_issue_duration_seconds",
			Help:    "Duration of one certificate issuance including rendering",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementIssue(outcome string) {
	if m != nil {
		m.IssueOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementVerify(result string) {
	if m != nil {
		m.VerifyOutcome.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementRevocations() {
	if m != nil {
		m.Revocations.Inc()
	}
}

func (m *Metrics) IncrementBulkItem(result string) {
	if m != nil {
		m.BulkItems.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveIssueLatency(d time.Duration) {
	if m != nil {
		m.IssueLatency.Observe(d.Seconds())
	}
}
