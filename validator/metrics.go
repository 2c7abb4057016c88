package validator

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "validator"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of completed evolution rounds.
	Rounds metrics.Counter
	// Time spent on one round, in seconds.
	RoundDurationSeconds metrics.Histogram
	// Number of peers connected in the current round.
	ConnectedPeers metrics.Gauge
	// Number of per-peer exchange faults.
	PeerFaults metrics.Counter
	// Total bytes exchanged with peers (both directions counted once).
	BytesExchanged metrics.Counter
}

// PrometheusMetrics returns Metrics built using the Prometheus client
// library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Rounds: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rounds_total",
			Help:      "Number of completed evolution rounds.",
		}, []string{}),
		RoundDurationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "round_duration_seconds",
			Help:      "Time spent on one round, in seconds.",
			Buckets:   stdprometheus.ExponentialBuckets(0.01, 3, 10),
		}, []string{}),
		ConnectedPeers: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "connected_peers",
			Help:      "Number of peers connected in the current round.",
		}, []string{}),
		PeerFaults: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "peer_faults_total",
			Help:      "Number of per-peer exchange faults.",
		}, []string{}),
		BytesExchanged: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "bytes_exchanged_total",
			Help:      "Total bytes exchanged with peers.",
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Rounds:               discard.NewCounter(),
		RoundDurationSeconds: discard.NewHistogram(),
		ConnectedPeers:       discard.NewGauge(),
		PeerFaults:           discard.NewCounter(),
		BytesExchanged:       discard.NewCounter(),
	}
}
