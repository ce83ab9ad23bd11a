// Package metrics exposes Prometheus collectors for the portal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and middleware depend on.
type Recorder interface {
	RecordRequest(method, route string, status int, latency time.Duration)
	RecordGrantTransition(status string)
	RecordLevelUp(role string, level int)
	RecordRateLimited()
}

type Collector struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	grants      *prometheus.CounterVec
	levelUps    *prometheus.CounterVec
	rateLimited prometheus.Counter
}

// NewCollector registers every collector on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_access_grant_transitions_total",
			Help: "Access grant state transitions by resulting status.",
		}, []string{"status"}),
		levelUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_profile_level_ups_total",
			Help: "Profile level increases by role and reached level.",
		}, []string{"role", "level"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(c.requests, c.latency, c.grants, c.levelUps, c.rateLimited)
	return c
}

func (c *Collector) RecordRequest(method, route string, status int, latency time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(route).Observe(latency.Seconds())
}

func (c *Collector) RecordGrantTransition(status string) {
	c.grants.WithLabelValues(status).Inc()
}

func (c *Collector) RecordLevelUp(role string, level int) {
	c.levelUps.WithLabelValues(role, strconv.Itoa(level)).Inc()
}

func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop drops every observation.
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordGrantTransition(string)                     {}
func (Nop) RecordLevelUp(string, int)                        {}
func (Nop) RecordRateLimited()                               {}
