package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/lobbyhub/internal/model"
)

const namespace = "lobbyhub"

// Metrics holds the prometheus collectors for the lobby
type Metrics struct {
	Connections    prometheus.Gauge
	Watchers       prometheus.Gauge
	Players        prometheus.Gauge
	LinkedPlayers  prometheus.Gauge
	ActiveGames    prometheus.Gauge
	EventsReceived *prometheus.CounterVec
	EventErrors    *prometheus.CounterVec
	EventLatency   prometheus.Histogram
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	Panics         prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a private registry, so several
// instances can coexist in tests
func NewMetrics() *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of open realtime connections",
		}),
		Watchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchers",
			Help:      "Number of connections in the watching room",
		}),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players",
			Help:      "Number of players in the roster, unlinked included",
		}),
		LinkedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "linked_players",
			Help:      "Number of players owned by a live connection",
		}),
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Number of games in progress",
		}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Inbound connection events by name",
		}, []string{"event"}),
		EventErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_errors_total",
			Help:      "Inbound connection events answered with an error, by name",
		}, []string{"event"}),
		EventLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_latency_seconds",
			Help:      "Inbound event processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_panics_total",
			Help:      "Handler panics recovered by the HTTP server",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Connections,
		m.Watchers,
		m.Players,
		m.LinkedPlayers,
		m.ActiveGames,
		m.EventsReceived,
		m.EventErrors,
		m.EventLatency,
		m.HTTPRequests,
		m.HTTPDuration,
		m.Panics,
	)
	return m
}

// Handler serves the metrics in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRoster updates the roster gauges
func (m *Metrics) ObserveRoster(players []model.Player) {
	linked := 0
	for _, p := range players {
		if p.Linked() {
			linked++
		}
	}
	m.Players.Set(float64(len(players)))
	m.LinkedPlayers.Set(float64(linked))
}

// ObserveEvent records one handled inbound event
func (m *Metrics) ObserveEvent(event model.EventName, failed bool, duration time.Duration) {
	m.EventsReceived.WithLabelValues(string(event)).Inc()
	if failed {
		m.EventErrors.WithLabelValues(string(event)).Inc()
	}
	m.EventLatency.Observe(duration.Seconds())
}

// ObserveRequest records one completed HTTP request. route is the matched
// path template, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}
