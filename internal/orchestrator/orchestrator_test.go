package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/vss-synth/internal/eval"
	"github.com/danielpatrickdp/vss-synth/internal/generator"
	"github.com/danielpatrickdp/vss-synth/internal/metrics"
	"github.com/danielpatrickdp/vss-synth/internal/output"
	"github.com/danielpatrickdp/vss-synth/internal/replay"
	"github.com/danielpatrickdp/vss-synth/internal/schema"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

// #region helpers

const testSchema = `{
  "Vehicle": {"children": {
    "Speed": {"datatype": "uint8"},
    "IsMoving": {"datatype": "boolean"},
    "Serial": {"datatype": "uint64"},
    "Cabin": {"children": {
      "Temp": {"datatype": "float"},
      "Seats": {"datatype": "string[]"}
    }}
  }}
}`

func newGenerator(t *testing.T, seed uint64) *generator.Generator {
	t.Helper()
	s, err := schema.Parse([]byte(testSchema), "test")
	require.NoError(t, err)
	g, err := generator.New(s, generator.NewRand(seed))
	require.NoError(t, err)
	return g
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type countingProgress struct{ n int }

func (p *countingProgress) Increment() { p.n++ }

// #endregion

func TestRunWritesEveryUnit(t *testing.T) {
	w := output.NewWriter(filepath.Join(t.TempDir(), "output"), "car")
	prog := &countingProgress{}
	m := metrics.New()
	g := newGenerator(t, 1)
	o := NewOrchestrator(g, w,
		WithProgress(prog),
		WithMetrics(m),
		WithEval(eval.NewEvalHarness(eval.DefaultEvalConfig()), eval.NewIndex(g.Leaves())),
		WithLogger(quietLogger()),
	)

	sum, err := o.Run(context.Background(), RunConfig{Units: 2, Snapshots: 4, Size: 1.0, ChangeRate: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Units)
	assert.Equal(t, 8, sum.Snapshots)
	assert.Equal(t, 8, prog.n)
	assert.Equal(t, 0, sum.EvalFailures)
	assert.Equal(t, 2, sum.Skipped, "Serial is skipped once per unit")

	assert.FileExists(t, w.StatePath(2, 4))
	assert.FileExists(t, w.PatchPath(1, 1))

	units, err := w.Units()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, units)

	for _, u := range units {
		entries, err := w.ReadUnit(u)
		require.NoError(t, err)
		require.Len(t, entries, 4)
		steps := replay.FromEntries(entries)
		summary := replay.Summarize(replay.Replay(steps), replay.Final(steps))
		assert.True(t, summary.OK(), "unit %d does not replay: %+v", u, summary)
	}

	// one series per trigger
	assert.Equal(t, 2, testutil.CollectAndCount(m.Registry(), "vssgen_snapshots_total"))
}

func TestRunPersistsToStore(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "vss.db"))
	require.NoError(t, err)
	defer store.Close()

	w := output.NewWriter(t.TempDir(), "car")
	o := NewOrchestrator(newGenerator(t, 2), w, WithStore(store), WithLogger(quietLogger()))
	_, err = o.Run(context.Background(), RunConfig{Units: 2, Snapshots: 3, Size: 1.0, ChangeRate: 0.3})
	require.NoError(t, err)

	units, err := store.Units()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, units)

	cur, err := store.GetCurrent(2)
	require.NoError(t, err)
	assert.Equal(t, 3, cur.Seq)

	lineage, err := store.Lineage(cur.VersionID)
	require.NoError(t, err)
	require.Len(t, lineage, 3)
	assert.Equal(t, "", lineage[0].ParentID)
	assert.Equal(t, lineage[0].VersionID, lineage[1].ParentID)

	steps, err := replay.FromLineage(lineage)
	require.NoError(t, err)
	assert.True(t, replay.Summarize(replay.Replay(steps), replay.Final(steps)).OK())

	versions, err := store.ListVersions(1, 10)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	triggers := map[string]int{}
	for _, v := range versions {
		triggers[v.Trigger]++
	}
	assert.Equal(t, map[string]int{"generate": 1, "generate_next": 2}, triggers)
}

func TestRunKeepsSnapshotAndLogTogether(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "vss.db"))
	require.NoError(t, err)
	defer store.Close()
	_, err = store.DB().Exec(`DROP TABLE generation_log`)
	require.NoError(t, err)

	o := NewOrchestrator(newGenerator(t, 2), output.NewWriter(t.TempDir(), "car"), WithStore(store), WithLogger(quietLogger()))
	_, err = o.Run(context.Background(), RunConfig{Units: 1, Snapshots: 2, Size: 1.0, ChangeRate: 0.3})
	require.Error(t, err)

	_, err = store.GetCurrent(1)
	assert.ErrorIs(t, err, state.ErrNoSnapshot, "failed log insert must not leave a snapshot row")
}

func TestRunResumesFromStore(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "vss.db"))
	require.NoError(t, err)
	defer store.Close()

	w := output.NewWriter(t.TempDir(), "car")
	cfg := RunConfig{Units: 1, Snapshots: 2, Size: 1.0, ChangeRate: 0.5}
	_, err = NewOrchestrator(newGenerator(t, 3), w, WithStore(store), WithLogger(quietLogger())).Run(context.Background(), cfg)
	require.NoError(t, err)

	cfg.Resume = true
	_, err = NewOrchestrator(newGenerator(t, 4), w, WithStore(store), WithLogger(quietLogger())).Run(context.Background(), cfg)
	require.NoError(t, err)

	cur, err := store.GetCurrent(1)
	require.NoError(t, err)
	assert.Equal(t, 4, cur.Seq)

	lineage, err := store.Lineage(cur.VersionID)
	require.NoError(t, err)
	assert.Len(t, lineage, 4)

	entries, err := w.ReadUnit(1)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestRunResumeNeedsStore(t *testing.T) {
	o := NewOrchestrator(newGenerator(t, 1), output.NewWriter(t.TempDir(), ""), WithLogger(quietLogger()))
	_, err := o.Run(context.Background(), RunConfig{Units: 1, Snapshots: 1, Resume: true})
	assert.Error(t, err)
}

func TestRunRejectsEmptyBatch(t *testing.T) {
	o := NewOrchestrator(newGenerator(t, 1), output.NewWriter(t.TempDir(), ""), WithLogger(quietLogger()))
	_, err := o.Run(context.Background(), RunConfig{Units: 0, Snapshots: 1})
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(newGenerator(t, 1), output.NewWriter(t.TempDir(), ""), WithLogger(quietLogger()))
	sum, err := o.Run(ctx, RunConfig{Units: 3, Snapshots: 3, Size: 1, ChangeRate: 0.1})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Equal(t, 0, sum.Snapshots)
}

func TestRunPropagatesGeneratorErrors(t *testing.T) {
	var buf bytes.Buffer
	o := NewOrchestrator(newGenerator(t, 1), output.NewWriter(t.TempDir(), ""), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	_, err := o.Run(context.Background(), RunConfig{Units: 1, Snapshots: 2, Size: 2.0})
	var re *generator.RangeError
	assert.True(t, errors.As(err, &re), "got %v", err)
}
