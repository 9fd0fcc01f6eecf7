package eval

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/vss-synth/internal/generator"
	"github.com/danielpatrickdp/vss-synth/internal/patch"
	"github.com/danielpatrickdp/vss-synth/internal/schema"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

const testSchema = `{
  "Vehicle": {"children": {
    "Speed": {"datatype": "uint8"},
    "IsMoving": {"datatype": "boolean"},
    "Tags": {"datatype": "string[]"},
    "Serial": {"datatype": "uint64"},
    "Cabin": {"children": {"Temp": {"datatype": "float", "unit": "celsius"}}}
  }}
}`

func setup(t *testing.T, seed uint64) (*generator.Generator, Index) {
	t.Helper()
	s, err := schema.Parse([]byte(testSchema), "test")
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	g, err := generator.New(s, generator.NewRand(seed))
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g, NewIndex(g.Leaves())
}

func decode(t *testing.T, src string) state.Tree {
	t.Helper()
	tree, err := state.Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return tree
}

func metric(t *testing.T, r EvalResult, name string) EvalMetric {
	t.Helper()
	m, ok := r.Metric(name)
	if !ok {
		t.Fatalf("missing metric %s", name)
	}
	return m
}

func TestIndexCollapsesChildren(t *testing.T) {
	_, idx := setup(t, 1)
	if _, ok := idx.Lookup("Vehicle.Cabin.Temp"); !ok {
		t.Fatal("expected Vehicle.Cabin.Temp in index")
	}
	if _, ok := idx.Lookup("Vehicle.children.Cabin.children.Temp"); ok {
		t.Fatal("schema paths must not be indexed verbatim")
	}
	if idx.Covered() != 4 {
		t.Errorf("expected 4 covered leaves, got %d", idx.Covered())
	}
}

func TestEvalPassesOnGeneratedChain(t *testing.T) {
	g, idx := setup(t, 7)
	h := NewEvalHarness(DefaultEvalConfig())

	snap, err := g.Generate(1.0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	result := h.Run(idx, state.Empty(), snap)
	if !result.Passed {
		t.Fatalf("expected pass on initial snapshot, got fail: %s", result.Reason)
	}
	if cov := metric(t, result, MetricLeafCoverage); cov.Value != 1 {
		t.Errorf("expected full coverage, got %v", cov.Value)
	}

	prev := snap.State
	for i := 0; i < 10; i++ {
		snap, err = g.Next(prev, 0.5)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		result = h.Run(idx, prev, snap)
		if !result.Passed {
			t.Fatalf("step %d: %s", i, result.Reason)
		}
		prev = snap.State
	}
}

func TestEvalCoverageIsInformational(t *testing.T) {
	g, idx := setup(t, 3)
	snap, err := g.Generate(0.0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	result := NewEvalHarness(DefaultEvalConfig()).Run(idx, state.Empty(), snap)
	if !result.Passed {
		t.Fatalf("expected pass on empty snapshot: %s", result.Reason)
	}
	if cov := metric(t, result, MetricLeafCoverage); cov.Value != 0 {
		t.Errorf("expected zero coverage, got %v", cov.Value)
	}

	config := DefaultEvalConfig()
	config.MinLeafCoverage = 0.5
	result = NewEvalHarness(config).Run(idx, state.Empty(), snap)
	if result.Passed {
		t.Fatal("expected fail under a coverage threshold")
	}
}

func TestEvalFailsOnKindMismatch(t *testing.T) {
	_, idx := setup(t, 1)
	bad := decode(t, `{"Vehicle": {"Speed": "fast", "IsMoving": true}}`)
	snap := generator.Snapshot{State: bad}
	var err error
	snap.Patch, err = patch.Compute(state.Empty(), bad)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}

	result := NewEvalHarness(DefaultEvalConfig()).Run(idx, state.Empty(), snap)
	if result.Passed {
		t.Fatal("expected fail on string speed")
	}
	if m := metric(t, result, MetricKindConsistency); m.Value != 0.5 || m.Pass {
		t.Errorf("expected kind_consistency 0.5 failing, got %+v", m)
	}
	if m := metric(t, result, MetricPatchRoundTrip); !m.Pass {
		t.Error("round trip should still pass")
	}
}

func TestEvalFailsOnUnknownPath(t *testing.T) {
	_, idx := setup(t, 1)
	tree := decode(t, `{"Vehicle": {"Ghost": 1}}`)
	p, err := patch.Compute(state.Empty(), tree)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	result := NewEvalHarness(DefaultEvalConfig()).Run(idx, state.Empty(), generator.Snapshot{State: tree, Patch: p})
	if result.Passed {
		t.Fatal("expected fail for a leaf absent from the schema")
	}
}

func TestEvalFailsOnBrokenPatch(t *testing.T) {
	g, idx := setup(t, 5)
	snap, err := g.Generate(1.0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	snap.Patch = snap.Patch[:len(snap.Patch)-1]

	result := NewEvalHarness(DefaultEvalConfig()).Run(idx, state.Empty(), snap)
	if result.Passed {
		t.Fatal("expected fail on truncated patch")
	}
	if m := metric(t, result, MetricPatchRoundTrip); m.Value != 0 {
		t.Errorf("expected patch_roundtrip 0, got %v", m.Value)
	}
	if !strings.Contains(result.Reason, "reproduce") {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}
