package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method and path.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signing_service_requests_total",
		Help: "The total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// RequestDuration observes HTTP request latency.
	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signing_service_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// TokenValidationsTotal counts magic-link validations by outcome.
	TokenValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signing_service_token_validations_total",
		Help: "The total number of magic link validations",
	}, []string{"status"})

	// OTPVerificationsTotal counts OTP verifications by outcome.
	OTPVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signing_service_otp_verifications_total",
		Help: "The total number of OTP verification attempts",
	}, []string{"status"})

	// SignaturesCapturedTotal counts successful signature captures.
	SignaturesCapturedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signing_service_signatures_captured_total",
		Help: "The total number of signatures captured",
	})

	// EnvelopesCompletedTotal counts envelopes reaching the completed state.
	EnvelopesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signing_service_envelopes_completed_total",
		Help: "The total number of envelopes completed",
	})

	// CleanupDeletedTotal counts rows removed by the expiry sweep.
	CleanupDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signing_service_cleanup_deleted_total",
		Help: "The total number of expired rows removed by the sweep",
	}, []string{"kind"})
)
