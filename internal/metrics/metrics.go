// Package metrics exposes HTTP and room activity counters for Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/roomhost/internal/events"
	"github.com/mcoot/roomhost/internal/middleware"
)

// Metrics owns a private registry so tests and multiple servers never collide
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RoomEventsTotal     *prometheus.CounterVec
	RateLimitedTotal    *prometheus.CounterVec
}

// New creates the collectors and registers them with runtime collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomhost_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roomhost_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RoomEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomhost_room_events_total",
			Help: "Room membership events by type and publish outcome",
		}, []string{"type", "outcome"}),
		RateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomhost_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RoomEventsTotal,
		m.RateLimitedTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		labels := prometheus.Labels{
			"method": r.Method,
			"route":  RouteName(r),
			"status": strconv.Itoa(wrapped.Status()),
		}
		m.HTTPRequestsTotal.With(labels).Inc()
		m.HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}

// RouteName returns the matched mux path template, keeping label cardinality bounded
func RouteName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// CountPublished wraps a publisher so every event is counted by outcome
func (m *Metrics) CountPublished(p events.Publisher) events.Publisher {
	return &countingPublisher{next: p, counter: m.RoomEventsTotal}
}

type countingPublisher struct {
	next    events.Publisher
	counter *prometheus.CounterVec
}

func (p *countingPublisher) Publish(ctx context.Context, event events.Event) error {
	err := p.next.Publish(ctx, event)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.counter.WithLabelValues(string(event.Type), outcome).Inc()
	return err
}
