package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aptlease_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aptlease_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	leaseAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aptlease_lease_attempts_total",
		Help: "Lease assignment attempts by result",
	}, []string{"result"})

	leaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aptlease_lease_duration_seconds",
		Help:    "Duration of lease assignment attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	leaseCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aptlease_lease_compensations_total",
		Help: "Contracts removed after losing the apartment status race",
	}, []string{"result"})

	tenantDeletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aptlease_tenant_deletions_total",
		Help: "Tenant deletion attempts by result",
	}, []string{"result"})

	reconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aptlease_reconcile_runs_total",
		Help: "Reconcile worker passes by result",
	}, []string{"result"})

	statusDrift = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aptlease_apartment_status_drift",
		Help: "Apartments whose stored status disagrees with their active contracts",
	}, []string{"kind"})
)

// Lease results
const (
	ResultSuccess          = "success"
	ResultConflict         = "conflict"
	ResultNotFound         = "not_found"
	ResultInvalidReference = "invalid_reference"
	ResultValidation       = "validation"
	ResultForbidden        = "forbidden"
	ResultPartialFailure   = "partial_failure"
	ResultError            = "error"
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveLease records the outcome and duration of a lease attempt.
func ObserveLease(result string, duration time.Duration) {
	leaseAttempts.WithLabelValues(result).Inc()
	leaseDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveCompensation counts contract rollbacks after a lost status race.
func ObserveCompensation(result string) {
	leaseCompensations.WithLabelValues(result).Inc()
}

// ObserveTenantDeletion counts a tenant deletion attempt.
func ObserveTenantDeletion(result string) {
	tenantDeletions.WithLabelValues(result).Inc()
}

// ObserveReconcile counts one reconcile pass.
func ObserveReconcile(result string) {
	reconcileRuns.WithLabelValues(result).Inc()
}

// SetDrift sets the drift gauge for one kind of inconsistency.
func SetDrift(kind string, count int) {
	if count < 0 {
		count = 0
	}
	statusDrift.WithLabelValues(kind).Set(float64(count))
}
