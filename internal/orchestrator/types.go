package orchestrator

// #region imports
import (
	"log/slog"

	"github.com/danielpatrickdp/vss-synth/internal/eval"
	"github.com/danielpatrickdp/vss-synth/internal/metrics"
	"github.com/danielpatrickdp/vss-synth/internal/patch"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

// #endregion

// #region run-config

// RunConfig describes one batch: Units chains of Snapshots states each.
type RunConfig struct {
	Units      int
	Snapshots  int
	Size       float64 // dataset size for the first snapshot of a unit
	ChangeRate float64 // change rate for every later snapshot

	// Resume continues each unit from its active snapshot in the store
	// instead of starting a new chain. Units without one start fresh.
	Resume bool
}

// #endregion

// #region run-summary

// RunSummary aggregates a finished or interrupted run.
type RunSummary struct {
	Units        int
	Snapshots    int
	Operations   patch.Summary
	Skipped      int
	EvalFailures int
}

// #endregion

// #region progress

// Progress receives one Increment per written snapshot.
type Progress interface {
	Increment()
}

// #endregion

// #region options

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore persists every snapshot and its generation_log row.
func WithStore(s *state.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithMetrics records counters for every snapshot.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithEval validates every snapshot against the schema index.
func WithEval(h *eval.EvalHarness, idx eval.Index) Option {
	return func(o *Orchestrator) {
		o.harness = h
		o.index = idx
	}
}

// WithProgress reports each written snapshot.
func WithProgress(p Progress) Option {
	return func(o *Orchestrator) { o.progress = p }
}

// WithLogger sets the run logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// #endregion
