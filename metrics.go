package dagrs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus-compatible measurements of scheduler
// behavior. It is optional: a nil *Metrics means collection is skipped
// everywhere it's referenced.
//
// Exposed series (namespace "dagrs"):
//   - inflight_nodes (gauge): nodes currently Running.
//   - node_latency_ms (histogram): Run() duration per node, by outcome.
//   - nodes_cancelled_total / nodes_failed_total (counters): terminal-state tallies.
//   - channel_sends_total (counter): packets successfully sent on any edge.
type Metrics struct {
	inflightNodes prometheus.Gauge
	nodeLatency   *prometheus.HistogramVec
	cancelled     *prometheus.CounterVec
	failed        *prometheus.CounterVec
	channelSends  *prometheus.CounterVec
}

// NewMetrics registers the dagrs metric series with registry (uses
// prometheus.DefaultRegisterer when nil).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		inflightNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dagrs",
			Name:      "inflight_nodes",
			Help:      "Number of nodes currently in the Running state.",
		}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dagrs",
			Name:      "node_latency_ms",
			Help:      "Node Run() duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"graph_id", "node_name", "outcome"}),
		cancelled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dagrs",
			Name:      "nodes_cancelled_total",
			Help:      "Nodes that transitioned to Cancelled.",
		}, []string{"graph_id"}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dagrs",
			Name:      "nodes_failed_total",
			Help:      "Nodes that transitioned to Failed.",
		}, []string{"graph_id"}),
		channelSends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dagrs",
			Name:      "channel_sends_total",
			Help:      "Packets successfully delivered across graph edges.",
		}, []string{"graph_id"}),
	}
}

func (m *Metrics) nodeStarted() {
	if m == nil {
		return
	}
	m.inflightNodes.Inc()
}

func (m *Metrics) nodeFinished(graphID, nodeName string, latency time.Duration, outcome string) {
	if m == nil {
		return
	}
	if outcome != "cancelled" {
		// A cancelled node never started, so it was never counted in flight.
		m.inflightNodes.Dec()
	}
	m.nodeLatency.WithLabelValues(graphID, nodeName, outcome).Observe(float64(latency.Milliseconds()))
	switch outcome {
	case "cancelled":
		m.cancelled.WithLabelValues(graphID).Inc()
	case "failed":
		m.failed.WithLabelValues(graphID).Inc()
	}
}

func (m *Metrics) channelSent(graphID string) {
	if m == nil {
		return
	}
	m.channelSends.WithLabelValues(graphID).Inc()
}
