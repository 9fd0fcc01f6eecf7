// Package orchestrator drives batch generation: for every unit it calls
// Generate once and Next for each further snapshot, persisting each state and
// patch pair before requesting the next transition.
package orchestrator

// #region imports
import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielpatrickdp/vss-synth/internal/eval"
	"github.com/danielpatrickdp/vss-synth/internal/generator"
	"github.com/danielpatrickdp/vss-synth/internal/logging"
	"github.com/danielpatrickdp/vss-synth/internal/metrics"
	"github.com/danielpatrickdp/vss-synth/internal/output"
	"github.com/danielpatrickdp/vss-synth/internal/patch"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

// #endregion

// #region orchestrator-struct

// Orchestrator coordinates the generator with its collaborators. Only the
// output writer is required.
type Orchestrator struct {
	gen      *generator.Generator
	writer   *output.Writer
	store    *state.Store
	metrics  *metrics.Metrics
	harness  *eval.EvalHarness
	index    eval.Index
	progress Progress
	logger   *slog.Logger
}

// #endregion

// #region constructor

// NewOrchestrator creates an orchestrator writing through w.
func NewOrchestrator(gen *generator.Generator, w *output.Writer, opts ...Option) *Orchestrator {
	o := &Orchestrator{gen: gen, writer: w, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// #endregion

// #region run

// Run generates every unit in order. It stops at the first error, or when ctx
// is cancelled between snapshots, and returns what was completed so far.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (RunSummary, error) {
	var sum RunSummary
	if cfg.Units < 1 || cfg.Snapshots < 1 {
		return sum, fmt.Errorf("run: units and snapshots must be >= 1")
	}
	if cfg.Resume && o.store == nil {
		return sum, fmt.Errorf("run: resume requires a store")
	}

	for unit := 1; unit <= cfg.Units; unit++ {
		if err := o.runUnit(ctx, unit, cfg, &sum); err != nil {
			return sum, fmt.Errorf("unit %d: %w", unit, err)
		}
		sum.Units++
	}

	o.logger.Info("run complete",
		"units", sum.Units,
		"snapshots", sum.Snapshots,
		"adds", sum.Operations.Adds,
		"removes", sum.Operations.Removes,
		"replaces", sum.Operations.Replaces,
		"skipped", sum.Skipped,
		"eval_failures", sum.EvalFailures,
	)
	return sum, nil
}

// cursor is the tip of a unit's chain.
type cursor struct {
	prev     state.Tree
	seq      int
	parentID string
}

func (o *Orchestrator) runUnit(ctx context.Context, unit int, cfg RunConfig, sum *RunSummary) error {
	cur, err := o.start(unit, cfg.Resume)
	if err != nil {
		return err
	}

	for i := 0; i < cfg.Snapshots; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		began := time.Now()

		trigger, ratio := logging.TriggerNext, cfg.ChangeRate
		var snap generator.Snapshot
		if cur.seq == 0 {
			trigger, ratio = logging.TriggerGenerate, cfg.Size
			snap, err = o.gen.Generate(cfg.Size)
		} else {
			snap, err = o.gen.Next(cur.prev, cfg.ChangeRate)
		}
		if err != nil {
			return err
		}

		seq := cur.seq + 1
		versionID, err := o.persist(unit, seq, cur.parentID, trigger, ratio, snap)
		if err != nil {
			return err
		}

		ops := patch.Summarize(snap.Patch)
		o.check(unit, seq, cur.prev, snap, sum)
		if o.metrics != nil {
			o.metrics.ObserveSnapshot(trigger, snap.State.Len(), ops, len(snap.Skipped), time.Since(began))
		}
		if o.progress != nil {
			o.progress.Increment()
		}
		o.logger.Debug("snapshot written",
			"unit", unit, "seq", seq, "trigger", trigger,
			"adds", ops.Adds, "removes", ops.Removes, "replaces", ops.Replaces)

		sum.Snapshots++
		sum.Skipped += len(snap.Skipped)
		sum.Operations.Adds += ops.Adds
		sum.Operations.Removes += ops.Removes
		sum.Operations.Replaces += ops.Replaces
		sum.Operations.Other += ops.Other

		cur = cursor{prev: snap.State, seq: seq, parentID: versionID}
	}
	return nil
}

// start returns the chain tip a unit continues from.
func (o *Orchestrator) start(unit int, resume bool) (cursor, error) {
	if !resume {
		return cursor{prev: state.Empty()}, nil
	}
	rec, err := o.store.GetCurrent(unit)
	if errors.Is(err, state.ErrNoSnapshot) {
		return cursor{prev: state.Empty()}, nil
	}
	if err != nil {
		return cursor{}, err
	}
	o.logger.Info("resuming unit", "unit", unit, "seq", rec.Seq, "version_id", rec.VersionID)
	return cursor{prev: rec.State, seq: rec.Seq, parentID: rec.VersionID}, nil
}

// #endregion

// #region persist

// persist writes the files and, with a store, the snapshot row and its
// generation_log entry in one transaction. It returns the stored version id
// ("" without a store).
func (o *Orchestrator) persist(unit, seq int, parentID, trigger string, ratio float64, snap generator.Snapshot) (string, error) {
	if err := o.writer.WriteSnapshot(unit, seq, snap.State, snap.Patch); err != nil {
		return "", err
	}
	if o.store == nil {
		return "", nil
	}

	patchJSON, err := json.Marshal(snap.Patch)
	if err != nil {
		return "", fmt.Errorf("marshal patch: %w", err)
	}
	ops := patch.Summarize(snap.Patch)
	logTransition := func(tx *sql.Tx, rec state.SnapshotRecord) error {
		return logging.LogTransition(tx, logging.TransitionEntry{
			VersionID:   rec.VersionID,
			Unit:        unit,
			Seq:         seq,
			TriggerType: trigger,
			Ratio:       ratio,
			Adds:        ops.Adds,
			Removes:     ops.Removes,
			Replaces:    ops.Replaces,
			Skipped:     len(snap.Skipped),
			CreatedAt:   rec.CreatedAt,
		})
	}
	rec, err := o.store.CommitSnapshot(state.SnapshotRecord{
		ParentID:  parentID,
		Unit:      unit,
		Seq:       seq,
		State:     snap.State,
		PatchJSON: string(patchJSON),
	}, logTransition)
	if err != nil {
		return "", err
	}
	return rec.VersionID, nil
}

// #endregion

// #region check

// check runs the eval harness when configured. Failures are logged and
// counted; they do not stop the run.
func (o *Orchestrator) check(unit, seq int, prev state.Tree, snap generator.Snapshot, sum *RunSummary) {
	if o.harness == nil {
		return
	}
	result := o.harness.Run(o.index, prev, snap)
	if result.Passed {
		return
	}
	sum.EvalFailures++
	for _, m := range result.Metrics {
		if !m.Pass && o.metrics != nil {
			o.metrics.ObserveEvalFailure(m.Name)
		}
	}
	o.logger.Warn("snapshot failed checks", "unit", unit, "seq", seq, "reason", result.Reason)
}

// #endregion
