package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclone_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "disclone_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "disclone_active_sessions",
			Help: "Number of live websocket client sessions.",
		},
	)
	realtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclone_realtime_events_total",
			Help: "Realtime change events by table and outcome (delivered, dropped, stale).",
		},
		[]string{"table", "outcome"},
	)
	messageSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclone_message_sends_total",
			Help: "Composer inserts by result.",
		},
		[]string{"result"},
	)
	readFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclone_read_failures_total",
			Help: "Backend reads that degraded to an empty list.",
		},
		[]string{"resource"},
	)
	backendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "disclone_backend_call_duration_seconds",
			Help:    "Latency of session backend calls by operation and result.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"op", "result"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "disclone_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		activeSessions,
		realtimeEventsTotal,
		messageSendsTotal,
		readFailuresTotal,
		backendCallDuration,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncActiveSessions() {
	activeSessions.Inc()
}

func DecActiveSessions() {
	activeSessions.Dec()
}

func IncRealtimeEvent(table, outcome string) {
	realtimeEventsTotal.WithLabelValues(table, outcome).Inc()
}

func IncMessageSend(result string) {
	messageSendsTotal.WithLabelValues(result).Inc()
}

func IncReadFailure(resource string) {
	readFailuresTotal.WithLabelValues(resource).Inc()
}

// ObserveBackendCall records one session backend call; result is "ok" or "error".
func ObserveBackendCall(op, result string, elapsed time.Duration) {
	backendCallDuration.WithLabelValues(op, result).Observe(elapsed.Seconds())
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
