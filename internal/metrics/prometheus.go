package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks HTTP requests served by the sandbox backend
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration on the sandbox backend
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)

	// ClientRequestsTotal tracks backend calls made by the storefront client
	ClientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_client_requests_total",
			Help: "Total number of backend requests made by the storefront client",
		},
		[]string{"endpoint", "status"},
	)

	// ClientRequestDuration tracks backend call latency
	ClientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_client_request_duration_seconds",
			Help:    "Backend request duration in seconds as seen by the client",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service", "circuit_name"},
	)

	// CircuitBreakerFailures tracks circuit breaker failures
	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of circuit breaker failures",
		},
		[]string{"service", "circuit_name"},
	)

	// BulkheadActiveRequests tracks active requests in bulkhead
	BulkheadActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bulkhead_active_requests",
			Help: "Number of active requests in bulkhead",
		},
		[]string{"service", "bulkhead_name"},
	)

	// BulkheadRejectedRequests tracks rejected requests by bulkhead
	BulkheadRejectedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkhead_rejected_requests_total",
			Help: "Total number of rejected requests by bulkhead",
		},
		[]string{"service", "bulkhead_name"},
	)

	// OrdersTotal tracks checkout attempts by outcome
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Total number of orders",
		},
		[]string{"status"},
	)

	// StatusPollsTotal tracks payment status polls by result
	StatusPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_status_polls_total",
			Help: "Total number of payment status polls",
		},
		[]string{"result"},
	)

	// PhotosUploadedTotal tracks source photos submitted to the backend
	PhotosUploadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_photos_uploaded_total",
			Help: "Total number of source photos submitted",
		},
	)

	// CartEntries tracks the current cart size
	CartEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cart_entries",
			Help: "Number of styles currently in the cart",
		},
	)

	// PaymentAmount tracks order totals
	PaymentAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_amount_rubles",
			Help:    "Order totals in rubles",
			Buckets: []float64{100, 300, 500, 1000, 3000, 10000},
		},
	)

	// SandboxPaymentMode tracks the forced payment outcome on the sandbox
	SandboxPaymentMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sandbox_payment_mode",
			Help: "Forced payment outcome on the sandbox (1=active)",
		},
		[]string{"mode"},
	)
)

// PrometheusMiddleware creates a Gin middleware for automatic metrics collection
func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		RequestsTotal.WithLabelValues(
			serviceName,
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()

		RequestDuration.WithLabelValues(
			serviceName,
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

// ObserveClientRequest records one backend call made by the client.
func ObserveClientRequest(endpoint string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	ClientRequestsTotal.WithLabelValues(endpoint, label).Inc()
	ClientRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
