package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/vss-synth/internal/patch"
)

func TestObserveSnapshot(t *testing.T) {
	m := New()
	m.ObserveSnapshot("generate", 12, patch.Summary{Adds: 3}, 2, time.Millisecond)
	m.ObserveSnapshot("generate_next", 12, patch.Summary{Replaces: 4, Removes: 1}, 0, time.Millisecond)
	m.ObserveSnapshot("generate_next", 12, patch.Summary{}, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshots.WithLabelValues("generate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.snapshots.WithLabelValues("generate_next")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.operations.WithLabelValues("add")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.operations.WithLabelValues("replace")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("remove")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.skipped))
	assert.Equal(t, 1, testutil.CollectAndCount(m.leaves))
}

func TestPrivateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveEvalFailure("patch_roundtrip")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.evalFailures.WithLabelValues("patch_roundtrip")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.evalFailures.WithLabelValues("patch_roundtrip")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveSnapshot("generate", 5, patch.Summary{Adds: 5}, 0, time.Millisecond)

	path := filepath.Join(t.TempDir(), "vssgen.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `vssgen_snapshots_total{trigger="generate"} 1`)

	expected := `
# HELP vssgen_skipped_leaves_total Included schema leaves with no generation rule for their datatype
# TYPE vssgen_skipped_leaves_total counter
vssgen_skipped_leaves_total 0
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "vssgen_skipped_leaves_total"))
}
