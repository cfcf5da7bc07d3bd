// Package metrics holds the Prometheus collectors of the listing service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_http_requests_total",
			Help: "Total HTTP requests served by the listing service",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_http_request_duration_seconds",
			Help:    "HTTP request latency of the listing service in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

var (
	// PhotoOutcomes counts intake results per file: uploaded, rejected, conversion_failed,
	// upload_failed, skipped_capacity.
	PhotoOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_draft_photo_outcomes_total",
			Help: "Photo intake outcomes per file",
		},
		[]string{"outcome"},
	)

	PersistenceFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_draft_persistence_failures_total",
			Help: "Draft cache writes or reads that failed",
		},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_submissions_total",
			Help: "Listing submissions by result",
		},
		[]string{"result"},
	)
)

func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
