// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "crm_http_requests_total", Help: "HTTP requests"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	DispatchRuns = promauto.NewCounter(
		prometheus.CounterOpts{Name: "campaign_dispatch_runs_total", Help: "Campaign dispatch runs completed"},
	)
	RecipientsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "campaign_recipients_processed_total", Help: "Recipients terminalized by dispatch"},
		[]string{"status"},
	)
	SendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campaign_email_send_duration_seconds",
			Help:    "Time spent in the email transport per recipient",
			Buckets: prometheus.DefBuckets,
		},
	)
	ActivitySinkFailures = promauto.NewCounter(
		prometheus.CounterOpts{Name: "activity_sink_failures_total", Help: "Activity log entries dropped"},
	)
)

func Handler() http.Handler { return promhttp.Handler() }
