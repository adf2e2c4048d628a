package core

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "chain"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of blocks in the accepted chain.
	Height metrics.Gauge
	// Number of connected peers.
	Peers metrics.Gauge
	// Protocol messages received, by type.
	MessagesReceived metrics.Counter
	// Blocks or chains refused by validation, by reason.
	BlocksRejected metrics.Counter
	// Number of times the accepted chain was replaced.
	ChainReplaced metrics.Counter
	// Number of blocks mined by this node.
	BlocksMined metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Height: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "height",
			Help:      "Number of blocks in the accepted chain.",
		}, []string{}),
		Peers: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "peers",
			Help:      "Number of connected peers.",
		}, []string{}),
		MessagesReceived: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "messages_received",
			Help:      "Protocol messages received, by type.",
		}, []string{"type"}),
		BlocksRejected: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "blocks_rejected",
			Help:      "Blocks or chains refused by validation, by reason.",
		}, []string{"reason"}),
		ChainReplaced: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "replaced",
			Help:      "Number of times the accepted chain was replaced.",
		}, []string{}),
		BlocksMined: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "blocks_mined",
			Help:      "Number of blocks mined by this node.",
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Height:           discard.NewGauge(),
		Peers:            discard.NewGauge(),
		MessagesReceived: discard.NewCounter(),
		BlocksRejected:   discard.NewCounter(),
		ChainReplaced:    discard.NewCounter(),
		BlocksMined:      discard.NewCounter(),
	}
}
