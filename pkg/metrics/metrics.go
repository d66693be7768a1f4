package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hemohub", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hemohub", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hemohub", Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "hemohub", Name: "http_request_duration_seconds", Help: "Duration of HTTP requests.", Buckets: prometheus.DefBuckets},
		[]string{"path"},
	)
	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hemohub", Name: "auth_failures_total", Help: "Rejected guard checks by role and reason."},
		[]string{"role", "reason"},
	)
	DeleteLogEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hemohub", Name: "delete_log_events_total", Help: "Delete-log captures, rollbacks and restores by item type."},
		[]string{"event", "item_type"},
	)
	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hemohub", Name: "status_transitions_total", Help: "Appointment and request status changes."},
		[]string{"resource", "to"},
	)
	StockExpired = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "hemohub", Name: "stock_expired_total", Help: "Blood stock lots marked expired by the sweep."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	reg.MustRegister(AuthFailures)
	reg.MustRegister(DeleteLogEvents)
	reg.MustRegister(StatusTransitions)
	reg.MustRegister(StockExpired)
}
