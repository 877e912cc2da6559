// Package metrics registers Quill's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quill_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	SessionsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quill_sessions_issued_total",
		Help: "Total number of sessions issued from invite codes",
	})

	SettlementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_settlements_total",
		Help: "Total number of chat-turn settlements by outcome",
	}, []string{"outcome"})

	TokensSettledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quill_tokens_settled_total",
		Help: "Total tokens settled against invite quotas",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SessionsIssuedTotal,
		SettlementsTotal,
		TokensSettledTotal,
	)
}

// Outcome labels for SettlementsTotal.
const (
	OutcomeOK            = "ok"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeError         = "error"
)
