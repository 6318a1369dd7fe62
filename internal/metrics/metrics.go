package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors the service exports.
type Metrics struct {
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	MatchRequests          *prometheus.CounterVec
	MatchFallbacks         prometheus.Counter
	TransactionTransitions *prometheus.CounterVec
	TransactionRejections  *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		MatchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_match_requests_total",
				Help: "Buyer match requests by sort order",
			},
			[]string{"sort"},
		),
		MatchFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketplace_match_fallback_total",
				Help: "Match requests served from the reference buyer dataset",
			},
		),
		TransactionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_transaction_transitions_total",
				Help: "Applied transaction status transitions",
			},
			[]string{"from", "to"},
		),
		TransactionRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_transaction_rejections_total",
				Help: "Rejected transaction operations by error kind",
			},
			[]string{"kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
			m.MatchRequests,
			m.MatchFallbacks,
			m.TransactionTransitions,
			m.TransactionRejections,
		)
	}

	return m
}

// Middleware records request counts and latencies per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "undefined"
		}

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
}
