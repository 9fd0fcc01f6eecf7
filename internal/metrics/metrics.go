// Package metrics exposes generation counters on a private Prometheus
// registry. Batch runs export them once through a node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/danielpatrickdp/vss-synth/internal/patch"
)

const namespace = "vssgen"

// Metrics holds the collectors of one run.
type Metrics struct {
	reg *prometheus.Registry

	// snapshots counts written snapshots.
	// Labels: trigger (generate, generate_next)
	snapshots *prometheus.CounterVec

	// operations counts patch operations.
	// Labels: op (add, remove, replace, other)
	operations *prometheus.CounterVec

	// skipped counts included leaves whose datatype has no generation rule.
	skipped prometheus.Counter

	// leaves tracks the number of leaves per snapshot.
	leaves prometheus.Histogram

	// duration measures generation plus persistence time per snapshot.
	duration prometheus.Histogram

	// evalFailures counts failed snapshot checks.
	// Labels: metric (leaf_coverage, kind_consistency, patch_roundtrip)
	evalFailures *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Total snapshots generated",
		}, []string{"trigger"}),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patch_operations_total",
			Help:      "Total JSON patch operations emitted",
		}, []string{"op"}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_leaves_total",
			Help:      "Included schema leaves with no generation rule for their datatype",
		}),
		leaves: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_leaves",
			Help:      "Number of leaves per snapshot",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time to generate and persist one snapshot",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		evalFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eval_failures_total",
			Help:      "Total failed snapshot checks",
		}, []string{"metric"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveSnapshot records one written snapshot.
func (m *Metrics) ObserveSnapshot(trigger string, leaves int, ops patch.Summary, skipped int, elapsed time.Duration) {
	m.snapshots.WithLabelValues(trigger).Inc()
	m.operations.WithLabelValues("add").Add(float64(ops.Adds))
	m.operations.WithLabelValues("remove").Add(float64(ops.Removes))
	m.operations.WithLabelValues("replace").Add(float64(ops.Replaces))
	m.operations.WithLabelValues("other").Add(float64(ops.Other))
	m.skipped.Add(float64(skipped))
	m.leaves.Observe(float64(leaves))
	m.duration.Observe(elapsed.Seconds())
}

// ObserveEvalFailure records a failed check by metric name.
func (m *Metrics) ObserveEvalFailure(metric string) {
	m.evalFailures.WithLabelValues(metric).Inc()
}

// WriteTextfile writes the registry in text exposition format. The file is
// replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
