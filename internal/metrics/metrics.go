// Package metrics exposes the tick loop's health as Prometheus
// metrics: connected-player count, tick duration, and dropped
// (too-late or too-far-ahead) input count on the server; an applied
// snapshot counter and an input round-trip histogram on the client.
//
// Grounded on runZeroInc-sockstats/pkg/exporter/exporter.go's
// collector-construction idiom (a constructor taking a metric name
// prefix and constLabels), simplified to promauto-registered
// counters/gauges since the tick loop has nothing resembling that
// collector's per-fd syscall table to poll lazily on Collect.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Server bundles the metrics the authoritative tick loop updates
// every tick or every traffic event.
type Server struct {
	ConnectedPlayers prometheus.Gauge
	TickDuration     prometheus.Histogram
	DroppedInputs    prometheus.Counter
}

// NewServer registers a fresh Server metric set with reg. Pass
// prometheus.DefaultRegisterer unless isolating the registration for
// a test.
func NewServer(reg prometheus.Registerer, constLabels prometheus.Labels) *Server {
	factory := promauto.With(reg)
	return &Server{
		ConnectedPlayers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "netcore",
			Subsystem:   "server",
			Name:        "connected_players",
			Help:        "Number of clients currently connected.",
			ConstLabels: constLabels,
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "netcore",
			Subsystem:   "server",
			Name:        "tick_duration_seconds",
			Help:        "Wall-clock time spent running one simulation tick.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		DroppedInputs: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "netcore",
			Subsystem:   "server",
			Name:        "dropped_inputs_total",
			Help:        "Client inputs discarded for targeting a tick already passed or too far ahead.",
			ConstLabels: constLabels,
		}),
	}
}

// Client bundles the metrics the client connection state machine
// updates as snapshots and acks arrive.
type Client struct {
	RoundTripSeconds prometheus.Histogram
	SnapshotsApplied prometheus.Counter
}

// NewClient registers a fresh Client metric set with reg.
func NewClient(reg prometheus.Registerer, constLabels prometheus.Labels) *Client {
	factory := promauto.With(reg)
	return &Client{
		RoundTripSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "netcore",
			Subsystem:   "client",
			Name:        "input_round_trip_seconds",
			Help:        "Time between sending an input and receiving its ack.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		SnapshotsApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "netcore",
			Subsystem:   "client",
			Name:        "snapshots_applied_total",
			Help:        "Authoritative snapshots folded into the prediction engine.",
			ConstLabels: constLabels,
		}),
	}
}
