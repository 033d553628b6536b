// Package metrics exports the Prometheus gauges and histograms the
// design notes call out as worth instrumenting: the k-cluster check is
// the core's one CPU hot spot, and blue score / finality depth are the
// numbers operators watch to tell a healthy node from a stalled one.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector bundles the core's metrics behind a constructor so that
// multiple ConsensusCore instances under test don't collide on the
// default Prometheus registry.
type Collector struct {
	VirtualBlueScore   prometheus.Gauge
	FinalizedBlueScore prometheus.Gauge
	ReorgTotal         prometheus.Counter
	RejectedTotal      *prometheus.CounterVec
	ClassifyDuration   prometheus.Histogram
	MergesetSize       prometheus.Histogram
	PendingParents     prometheus.Gauge
	FinalityViolations prometheus.Counter
}

// NewCollector builds a Collector and registers it with registry.
func NewCollector(registry *prometheus.Registry) *Collector {
	c := &Collector{
		VirtualBlueScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "axiomd",
			Subsystem: "consensus",
			Name:      "virtual_blue_score",
			Help:      "Blue score of the current virtual tip.",
		}),
		FinalizedBlueScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "axiomd",
			Subsystem: "consensus",
			Name:      "finalized_blue_score",
			Help:      "Blue score of the current finalized head.",
		}),
		ReorgTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "axiomd",
			Subsystem: "consensus",
			Name:      "reorgs_total",
			Help:      "Number of accepted chain reorganizations.",
		}),
		RejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "axiomd",
			Subsystem: "consensus",
			Name:      "rejected_blocks_total",
			Help:      "Number of blocks rejected, by reason code.",
		}, []string{"reason"}),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "axiomd",
			Subsystem: "consensus",
			Name:      "classify_duration_seconds",
			Help:      "Time spent running the GHOSTDAG k-cluster classification for one block.",
			Buckets:   prometheus.DefBuckets,
		}),
		MergesetSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "axiomd",
			Subsystem: "consensus",
			Name:      "mergeset_size",
			Help:      "Size of a classified block's mergeset.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		}),
		PendingParents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "axiomd",
			Subsystem: "consensus",
			Name:      "pending_parent_buffer_size",
			Help:      "Number of blocks currently buffered awaiting missing parents.",
		}),
		FinalityViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "axiomd",
			Subsystem: "consensus",
			Name:      "finality_violations_total",
			Help:      "Number of classified blocks whose selected-parent chain does not descend from the finalized head.",
		}),
	}
	registry.MustRegister(
		c.VirtualBlueScore, c.FinalizedBlueScore, c.ReorgTotal,
		c.RejectedTotal, c.ClassifyDuration, c.MergesetSize, c.PendingParents,
		c.FinalityViolations,
	)
	return c
}
