package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/vss-synth/internal/patch"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

func mustTree(t *testing.T, src string) state.Tree {
	t.Helper()
	tree, err := state.Decode(strings.NewReader(src))
	require.NoError(t, err)
	return tree
}

func TestLayout(t *testing.T) {
	w := NewWriter("out", "")
	assert.Equal(t, filepath.Join("out", "car_2"), w.UnitDir(2))
	assert.Equal(t, filepath.Join("out", "car_2", "2_3.json"), w.StatePath(2, 3))
	assert.Equal(t, filepath.Join("out", "car_2", "patches", "2_3.json"), w.PatchPath(2, 3))
}

func TestWriteAndReadUnit(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "output"), "car")
	_, err := w.Prepare(true)
	require.NoError(t, err)

	first := mustTree(t, `{"Vehicle": {"Speed": 40, "Temp": 21.0}}`)
	p1, err := patch.Compute(state.Empty(), first)
	require.NoError(t, err)
	second := mustTree(t, `{"Vehicle": {"Speed": 41, "Temp": 21.0}}`)
	p2, err := patch.Compute(first, second)
	require.NoError(t, err)

	// write seq 10 before 2 to check numeric ordering on read
	require.NoError(t, w.WriteSnapshot(1, 1, first, p1))
	require.NoError(t, w.WriteSnapshot(1, 10, second, patch.Patch{}))
	require.NoError(t, w.WriteSnapshot(1, 2, second, p2))

	data, err := os.ReadFile(w.StatePath(1, 1))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"Vehicle\": {\n        \"Speed\": 40,")
	assert.Contains(t, string(data), `"Temp": 21.0`)

	entries, err := w.ReadUnit(1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{entries[0].Seq, entries[1].Seq, entries[2].Seq})
	assert.True(t, entries[0].State.Equal(first))
	assert.Len(t, entries[1].Patch, 1)
	assert.Empty(t, entries[2].Patch)

	temp, ok := entries[0].State.Get("Vehicle.Temp")
	require.True(t, ok)
	assert.Equal(t, "float", temp.Kind().String())
}

func TestPrepareClean(t *testing.T) {
	root := filepath.Join(t.TempDir(), "output")
	w := NewWriter(root, "car")

	removed, err := w.Prepare(true)
	require.NoError(t, err)
	assert.False(t, removed)

	stale := filepath.Join(root, "car_9", "9_1.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0o644))

	removed, err = w.Prepare(false)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.FileExists(t, stale)

	removed, err = w.Prepare(true)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoFileExists(t, stale)
	assert.DirExists(t, root)
}

func TestUnits(t *testing.T) {
	w := NewWriter(t.TempDir(), "truck")
	for _, u := range []int{3, 1, 12} {
		require.NoError(t, w.WriteSnapshot(u, 1, state.Empty(), nil))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(w.Dir(), "car_5"), 0o755))

	units, err := w.Units()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 12}, units)
}

func TestReadUnitErrors(t *testing.T) {
	w := NewWriter(t.TempDir(), "car")
	_, err := w.ReadUnit(1)
	assert.Error(t, err)

	require.NoError(t, os.MkdirAll(w.UnitDir(1), 0o755))
	_, err = w.ReadUnit(1)
	assert.ErrorIs(t, err, ErrNoSnapshots)

	require.NoError(t, w.WriteSnapshot(1, 1, state.Empty(), nil))
	require.NoError(t, os.WriteFile(w.PatchPath(1, 1), []byte("not json"), 0o644))
	_, err = w.ReadUnit(1)
	assert.Error(t, err)

	assert.Error(t, w.WriteSnapshot(0, 1, state.Empty(), nil))
}
