package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the license redemption subsystem.
type Metrics struct {
	ClaimsTotal   *prometheus.CounterVec
	ClaimDuration *prometheus.HistogramVec
	BatchSize     *prometheus.HistogramVec
	BatchClaimed  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		ClaimsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kitclaim_license_claims_total",
			Help: "Claim attempts by method (code, token, batch) and outcome",
		}, []string{"method", "outcome"}),
		ClaimDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kitclaim_license_claim_duration_seconds",
			Help:    "End-to-end claim operation latency by method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		BatchSize: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kitclaim_license_batch_size",
			Help:    "Number of licenses per batch request",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}, []string{"action"}),
		BatchClaimed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kitclaim_license_batch_items_total",
			Help: "Per-item batch outcomes",
		}, []string{"action", "outcome"}),
	}
}

// ObserveClaim records one single-license claim attempt.
func (m *Metrics) ObserveClaim(method, outcome string) {
	m.ClaimsTotal.WithLabelValues(method, outcome).Inc()
}

// ObserveDuration records how long one claim operation took.
func (m *Metrics) ObserveDuration(method string, seconds float64) {
	m.ClaimDuration.WithLabelValues(method).Observe(seconds)
}

// ObserveBatch records a batch request's size and per-item outcomes.
func (m *Metrics) ObserveBatch(action string, size, succeeded int) {
	m.BatchSize.WithLabelValues(action).Observe(float64(size))
	m.BatchClaimed.WithLabelValues(action, "success").Add(float64(succeeded))
	m.BatchClaimed.WithLabelValues(action, "failure").Add(float64(size - succeeded))
}
