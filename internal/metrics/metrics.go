package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upbolis_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upbolis_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "route"})

	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upbolis_ledger_operations_total",
		Help: "Committed ledger operations by type",
	}, []string{"type"})

	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upbolis_webhook_deliveries_total",
		Help: "Outbound webhook delivery attempts by outcome",
	}, []string{"outcome"})
)
