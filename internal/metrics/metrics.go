package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckoutMetrics holds the service's collectors
type CheckoutMetrics struct {
	Requests   *prometheus.CounterVec
	LatencyMS  *prometheus.HistogramVec
	Placements *prometheus.CounterVec
	Payments   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *CheckoutMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "checkout",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	placements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "order_placements_total",
		Help:      "Order placement attempts by payment method and result.",
	}, []string{"payment_method", "result"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "payment_outcomes_total",
		Help:      "Payment steps by operation and resulting state.",
	}, []string{"operation", "state"})

	reg.MustRegister(requests, latency, placements, payments)
	return &CheckoutMetrics{Requests: requests, LatencyMS: latency, Placements: placements, Payments: payments}
}

// ObservePlacement counts one placement attempt
func (m *CheckoutMetrics) ObservePlacement(method string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Placements.WithLabelValues(method, result).Inc()
}

// ObservePayment counts one payment step
func (m *CheckoutMetrics) ObservePayment(operation, state string) {
	m.Payments.WithLabelValues(operation, state).Inc()
}

// Middleware records request counts and latency per route
func (m *CheckoutMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
