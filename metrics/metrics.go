package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "salonportal"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BonusCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_bonus_calculations_total",
			Help: "Bonus calculations materialized, by growth tier",
		},
		[]string{"tier"},
	)

	InvitationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_invitations_total",
			Help: "Invitation lifecycle events",
		},
		[]string{"event"},
	)

	OTPVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_poa_otp_verifications_total",
			Help: "Power of attorney OTP verification outcomes",
		},
		[]string{"result"},
	)

	ImportedSaleRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_imported_sale_rows_total",
			Help: "Supplier sale rows imported, by outcome",
		},
		[]string{"outcome"},
	)

	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_external_call_duration_seconds",
			Help:    "Duration of calls to external collaborators",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"target", "operation"},
	)
)

// TrackExternalCall is used as `defer metrics.TrackExternalCall("hubspot", "search")(time.Now())`.
func TrackExternalCall(target, operation string) func(time.Time) {
	return func(start time.Time) {
		ExternalCallDuration.WithLabelValues(target, operation).Observe(time.Since(start).Seconds())
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
