// Package metrics provides Prometheus instrumentation for the desk client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PollCycles counts refresh cycles per view, partitioned by outcome
	// ("ok" or "error").
	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookdesk_poll_cycles_total",
		Help: "Total poll refresh cycles per view",
	}, []string{"view", "outcome"})

	// PollDuration tracks how long one fetch-and-apply cycle takes per view.
	PollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookdesk_poll_duration_seconds",
		Help:    "Poll cycle duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	}, []string{"view"})

	// StaleDrops counts results discarded because a newer cycle already
	// landed, the view was unbound, or the session epoch changed mid-flight.
	StaleDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookdesk_stale_drops_total",
		Help: "Poll results discarded as stale",
	}, []string{"view"})

	// RequestsTotal counts outbound exchange requests by operation and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookdesk_exchange_requests_total",
		Help: "Outbound requests to the competition service",
	}, []string{"op", "status"})

	// WebSocketClients tracks attached UI connections.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bookdesk_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// JournaledTrades counts tape entries persisted by the trade journal.
	JournaledTrades = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookdesk_journaled_trades_total",
		Help: "Trades recorded to the journal",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
