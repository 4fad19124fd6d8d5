// Package metricsvc collects the Prometheus metrics of the API.
package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/mergington/core/activity"
)

// signup results
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultConflict = "conflict"
	resultError    = "error"
)

// Collector records HTTP and signup metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	signups         *prometheus.CounterVec
}

var _ activity.Metrics = (*Collector)(nil)

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_signups_total",
			Help:      "Number of signup attempts by activity and result.",
		}, []string{"activity", "result"}),
	}

	c.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		c.requests,
		c.requestDuration,
		c.signups,
	)
	return c
}

// RecordSignup records the outcome of a signup attempt.
// Unknown activities are grouped under a single label to bound cardinality.
func (c *Collector) RecordSignup(name string, err error) {
	result := resultOK
	switch errors.Cause(err) {
	case nil:
	case activity.ErrNotFound:
		result = resultNotFound
		name = "unknown"
	case activity.ErrAlreadySignedUp:
		result = resultConflict
	default:
		result = resultError
	}
	c.signups.WithLabelValues(name, result).Inc()
}

// Middleware records every request handled by echo.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			if err != nil {
				// let the HTTP error handler write the response to know its status
				ctx.Error(err)
			}
			status := ctx.Response().Status
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			c.requests.WithLabelValues(ctx.Request().Method, route, strconv.Itoa(status)).Inc()
			c.requestDuration.WithLabelValues(ctx.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the collected metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry is exposed for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
