package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Entity operation counter
	EntityOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_entity_operations_total",
			Help: "Total number of repository operations by entity kind",
		},
		[]string{"entity", "operation"}, // operation can be "create", "get", "list", "update", "soft_delete"
	)

	// Tenant resolution counter
	TenantResolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_tenant_resolutions_total",
			Help: "Total number of tenant subdomain resolutions",
		},
		[]string{"outcome"}, // outcome can be "resolved", "not_found", "invalid"
	)

	// Batch reconcile counters
	BatchItemCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_batch_items_total",
			Help: "Total number of batch reconcile items by outcome",
		},
		[]string{"outcome"}, // outcome can be "succeeded", "failed", "noop"
	)

	// Event fan-out counters
	EventsPublishedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_events_published_total",
			Help: "Total number of change events published to the hub",
		},
		[]string{"kind"},
	)

	EventsDroppedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pharmacy_events_dropped_total",
			Help: "Total number of events dropped for slow subscribers",
		},
	)

	// Error counter
	ErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"}, // type can be "not_found", "validation_error", "conflict", "connection_error" etc.
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pharmacy_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pharmacy_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)

	// Batch reconcile duration
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pharmacy_batch_duration_seconds",
			Help:    "Duration of batch reconcile invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Gauge metrics
var (
	// Live event subscribers
	SubscribersGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pharmacy_event_subscribers",
			Help: "Number of currently attached event subscribers per tenant",
		},
		[]string{"tenant_id"},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pharmacy_info",
			Help: "Information about the pharmacy service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(EntityOperationCounter)
	prometheus.MustRegister(TenantResolutionCounter)
	prometheus.MustRegister(BatchItemCounter)
	prometheus.MustRegister(EventsPublishedCounter)
	prometheus.MustRegister(EventsDroppedCounter)
	prometheus.MustRegister(ErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(BatchDuration)

	// Register gauges
	prometheus.MustRegister(SubscribersGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// RecordEntityOperation increments the repository operation counter
func RecordEntityOperation(entity, operation string) {
	EntityOperationCounter.With(prometheus.Labels{
		"entity":    entity,
		"operation": operation,
	}).Inc()
}

// RecordError increments the error counter for the given error type
func RecordError(errType string) {
	ErrorCounter.With(prometheus.Labels{"type": errType}).Inc()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// SubscriberAttached adjusts the live subscriber gauge for a tenant
func SubscriberAttached(tenantID uint, delta float64) {
	SubscribersGauge.With(prometheus.Labels{
		"tenant_id": strconv.FormatUint(uint64(tenantID), 10),
	}).Add(delta)
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Record metrics after the request is processed
			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			endpoint := c.Path()

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			duration := time.Since(start).Seconds()
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			return err
		}
	}
}
