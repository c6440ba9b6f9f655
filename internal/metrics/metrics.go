// Package metrics exposes prometheus collectors for the HTTP layer and check-ins.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups all application metrics
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	checkins      prometheus.Counter
	freezesUsed   prometheus.Counter
	logins        *prometheus.CounterVec
	wsConnections prometheus.Gauge
}

// NewCollector creates the collectors and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rollcall_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		checkins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_checkins_total",
			Help: "Check-ins recorded.",
		}),
		freezesUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_streak_freezes_used_total",
			Help: "Streak freezes consumed to keep a streak alive.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rollcall_ws_connections",
			Help: "Open websocket connections.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.checkins,
		c.freezesUsed,
		c.logins,
		c.wsConnections,
	)

	return c
}

// RecordRequest records one HTTP request.
func (c *Collector) RecordRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

// RecordCheckin records a check-in and whether it consumed a freeze.
func (c *Collector) RecordCheckin(usedFreeze bool) {
	c.checkins.Inc()
	if usedFreeze {
		c.freezesUsed.Inc()
	}
}

// RecordLogin records a login outcome ("success", "failure", "rate_limited").
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// WSConnected adjusts the open websocket gauge by delta.
func (c *Collector) WSConnected(delta int) {
	c.wsConnections.Add(float64(delta))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
