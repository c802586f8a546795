// Package metrics defines the Prometheus metrics of the Adoptify web frontend.
//
// Metric naming follows Prometheus conventions:
//   - adoptify_web_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric below plus the Go runtime collectors. It is
// served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// LoginsTotal counts login attempts by outcome and resolved role.
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoptify_web_logins_total",
			Help: "Total login attempts by outcome and role.",
		},
		[]string{"outcome", "role"},
	)

	// LogoutsTotal counts logouts, including ones on an already empty session.
	LogoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adoptify_web_logouts_total",
			Help: "Total logouts.",
		},
	)

	// RefreshesTotal counts token refresh calls that actually hit the API.
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoptify_web_token_refreshes_total",
			Help: "Total access token refreshes by outcome.",
		},
		[]string{"outcome"},
	)

	// RefreshWaitersTotal counts callers that joined a refresh already in
	// flight instead of starting their own.
	RefreshWaitersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adoptify_web_token_refresh_shared_total",
			Help: "Total callers served by a shared in-flight refresh.",
		},
	)

	// SessionsExpiredTotal counts sessions cleared after a failed refresh.
	SessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adoptify_web_sessions_expired_total",
			Help: "Total sessions cleared because the refresh token was rejected.",
		},
	)

	// SessionsSweptTotal counts idle sessions removed by the sweeper.
	SessionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adoptify_web_sessions_swept_total",
			Help: "Total idle sessions removed by the sweeper.",
		},
	)

	// GuardDenialsTotal counts route denials by policy and reason.
	GuardDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoptify_web_guard_denials_total",
			Help: "Total route denials by policy and reason.",
		},
		[]string{"policy", "reason"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter, by
	// bucket ("pages" or "credentials").
	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoptify_web_rate_limited_total",
			Help: "Total requests rejected by the rate limiter by bucket.",
		},
		[]string{"bucket"},
	)

	// UpstreamRequestsTotal counts calls to the Adoptify API by method and
	// status code ("0" for transport failures).
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoptify_web_upstream_requests_total",
			Help: "Total Adoptify API requests by method and status.",
		},
		[]string{"method", "status"},
	)

	// UpstreamDurationSeconds is a histogram of Adoptify API latency.
	UpstreamDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adoptify_web_upstream_duration_seconds",
			Help:    "Duration of Adoptify API requests in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LoginsTotal,
		LogoutsTotal,
		RefreshesTotal,
		RefreshWaitersTotal,
		SessionsExpiredTotal,
		SessionsSweptTotal,
		GuardDenialsTotal,
		RateLimitedTotal,
		UpstreamRequestsTotal,
		UpstreamDurationSeconds,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RecordUpstream records one Adoptify API exchange. status is zero when no
// response was received.
func RecordUpstream(method string, status int, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	UpstreamDurationSeconds.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRefresh records a refresh call that reached the API.
func RecordRefresh(err error) {
	if err != nil {
		RefreshesTotal.WithLabelValues("failure").Inc()
		return
	}
	RefreshesTotal.WithLabelValues("success").Inc()
}

func RecordLogin(outcome string, role string) {
	LoginsTotal.WithLabelValues(outcome, role).Inc()
}

func RecordGuardDenial(policy string, reason string) {
	GuardDenialsTotal.WithLabelValues(policy, reason).Inc()
}
