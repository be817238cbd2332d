// Package metrics exposes the prometheus collectors of planhub on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"planhub/internal/domain/service"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "planhub"

// Metrics owns the registry and every collector registered on it.
type Metrics struct {
	registry *prometheus.Registry

	purchases     prometheus.Counter
	expired       prometheus.Counter
	publishFailed *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

var _ service.SubscriptionRecorder = (*Metrics)(nil)

// New registers the planhub collectors plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		purchases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_purchases_total",
			Help:      "Committed plan purchases.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_expired_total",
			Help:      "User plans deactivated by the expiry sweep.",
		}),
		publishFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Subscription events that could not be published.",
		}, []string{"type"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_sweeps_total",
			Help:      "Expiry sweeps by result.",
		}, []string{"result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expiry_sweep_duration_seconds",
			Help:      "Duration of expiry sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests.",
		}, []string{"path", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.purchases,
		m.expired,
		m.publishFailed,
		m.sweeps,
		m.sweepDuration,
		m.httpRequests,
		m.httpLatency,
	)

	return m
}

// NewRecorder exposes m as the domain recorder for fx.
func NewRecorder(m *Metrics) service.SubscriptionRecorder {
	return m
}

func (m *Metrics) PurchaseCompleted() {
	m.purchases.Inc()
}

func (m *Metrics) PlansExpired(n int) {
	if n > 0 {
		m.expired.Add(float64(n))
	}
}

func (m *Metrics) EventPublishFailed(eventType string) {
	m.publishFailed.WithLabelValues(eventType).Inc()
}

// ObserveSweep records one expiry sweep.
func (m *Metrics) ObserveSweep(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	m.sweeps.WithLabelValues(result).Inc()
	m.sweepDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests by route template, method and status.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo's error handler set the final status first
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(path, method, strconv.Itoa(c.Response().Status)).Inc()
			m.httpLatency.WithLabelValues(path, method).Observe(time.Since(start).Seconds())

			return nil
		}
	}
}
