// Package metrics exposes Prometheus instrumentation for the HTTP surface and
// the business events raised by the engines.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

// Collector holds all Prometheus metrics for the application on its own registry
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	events map[domain.Event]prometheus.Counter
	drift  *prometheus.GaugeVec
}

var _ domain.Observer = (*Collector)(nil)

// eventMetric names the counter for each business event
var eventMetric = map[domain.Event]string{
	domain.EventConnectionRequested: "connection_requests_total",
	domain.EventConnectionAccepted:  "connections_accepted_total",
	domain.EventTopicCreated:        "forum_topics_created_total",
	domain.EventReplyCreated:        "forum_replies_created_total",
	domain.EventCommentCreated:      "resource_comments_total",
}

// NewCollector creates a collector whose metric names carry namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		events: make(map[domain.Event]prometheus.Counter, len(eventMetric)),
		drift: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "counter_drift",
				Help:      "Cached counters found out of sync by the last reconciliation",
			},
			[]string{"counter"},
		),
	}

	registry.MustRegister(c.HTTPRequests, c.HTTPDuration, c.drift)
	for event, name := range eventMetric {
		ctr := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      "Total " + string(event) + " events",
		})
		registry.MustRegister(ctr)
		c.events[event] = ctr
	}
	return c
}

// Observe counts a business event. Unknown events are ignored.
func (c *Collector) Observe(event domain.Event) {
	if ctr, ok := c.events[event]; ok {
		ctr.Inc()
	}
}

// RecordDrift publishes the number of drifted entities per counter. Counters
// absent from drifts are reset to zero.
func (c *Collector) RecordDrift(drifts []domain.Drift) {
	counts := map[string]int{
		domain.CounterCategoryTopics:   0,
		domain.CounterResourceComments: 0,
		domain.CounterCommenters:       0,
	}
	for _, d := range drifts {
		counts[d.Counter]++
	}
	for counter, n := range counts {
		c.drift.WithLabelValues(counter).Set(float64(n))
	}
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware records request count and latency keyed by chi route pattern.
// The pattern is read after the handler runs, once routing has completed.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
