package eval

import (
	"fmt"

	"github.com/danielpatrickdp/vss-synth/internal/generator"
	"github.com/danielpatrickdp/vss-synth/internal/patch"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

const (
	MetricLeafCoverage    = "leaf_coverage"
	MetricKindConsistency = "kind_consistency"
	MetricPatchRoundTrip  = "patch_roundtrip"
)

// #region eval-harness
// EvalHarness validates generated snapshots against their schema and
// predecessor.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks snap against the schema index and against prev, the state the
// patch was computed from (state.Empty() for an initial snapshot).
func (h *EvalHarness) Run(idx Index, prev state.Tree, snap generator.Snapshot) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	// 1. Coverage: share of generatable schema leaves present in the state
	present, consistent, total := 0, 0, 0
	for path, v := range snap.State.Leaves() {
		total++
		d, ok := idx.Lookup(path)
		if !ok {
			continue
		}
		if d.Covered() {
			present++
		}
		if generator.ExpectedKind(d, v) {
			consistent++
		}
	}
	coverage := ratio(present, idx.Covered())
	coveragePass := coverage >= h.config.MinLeafCoverage
	metrics = append(metrics, EvalMetric{Name: MetricLeafCoverage, Value: coverage, Pass: coveragePass})
	if !coveragePass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("leaf coverage %.4f below %.4f", coverage, h.config.MinLeafCoverage))
	}

	// 2. Kind consistency: share of state leaves matching their declared datatype
	kinds := ratio(consistent, total)
	kindsPass := kinds >= h.config.MinKindConsistency
	metrics = append(metrics, EvalMetric{Name: MetricKindConsistency, Value: kinds, Pass: kindsPass})
	if !kindsPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("%d of %d leaves do not match their datatype", total-consistent, total))
	}

	// 3. Patch round trip: prev + patch must reproduce the state
	var roundTrip float32
	applied, err := patch.Apply(prev, snap.Patch)
	switch {
	case err != nil:
		failReasons = append(failReasons, fmt.Sprintf("patch does not apply: %v", err))
	case !applied.Equal(snap.State):
		failReasons = append(failReasons, "patch does not reproduce the state")
	default:
		roundTrip = 1
	}
	metrics = append(metrics, EvalMetric{Name: MetricPatchRoundTrip, Value: roundTrip, Pass: roundTrip == 1})
	if roundTrip != 1 {
		passed = false
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
// ratio is 1 for an empty denominator: nothing to cover is full coverage.
func ratio(n, d int) float32 {
	if d == 0 {
		return 1
	}
	return float32(n) / float32(d)
}

// #endregion helpers
