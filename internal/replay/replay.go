package replay

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/vss-synth/internal/output"
	"github.com/danielpatrickdp/vss-synth/internal/patch"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

// Step actions.
const (
	ActionMatch      = "match"
	ActionMismatch   = "mismatch"
	ActionApplyError = "apply_error"
)

// #region types
// Step is one recorded transition: the patch that was written and the state
// that was written next to it.
type Step struct {
	ID    string
	Patch patch.Patch
	Want  state.Tree
}

// ReplayResult captures the outcome of re-applying one recorded patch.
type ReplayResult struct {
	ID     string
	Action string // "match" | "mismatch" | "apply_error"
	Reason string
	Ops    patch.Summary
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps  int
	Matches     int
	Mismatches  int
	ApplyErrors int
	FinalState  state.Tree
}

// OK reports whether every step reproduced its recorded state.
func (s ReplaySummary) OK() bool { return s.Matches == s.TotalSteps }

// #endregion types

// #region replay
// Replay starts from the empty document and applies each step's patch in
// order, comparing the result with the recorded state. After a failing step
// the replay resynchronizes on the recorded state, so one bad file is
// reported once instead of on every later step.
func Replay(steps []Step) []ReplayResult {
	current := state.Empty()
	results := make([]ReplayResult, 0, len(steps))

	for _, step := range steps {
		res := ReplayResult{ID: step.ID, Ops: patch.Summarize(step.Patch)}

		got, err := patch.Apply(current, step.Patch)
		switch {
		case err != nil:
			res.Action = ActionApplyError
			res.Reason = err.Error()
		case !got.Equal(step.Want):
			res.Action = ActionMismatch
			res.Reason = "patched state differs from recorded state"
		default:
			res.Action = ActionMatch
		}

		results = append(results, res)
		current = step.Want
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, finalState state.Tree) ReplaySummary {
	s := ReplaySummary{
		TotalSteps: len(results),
		FinalState: finalState,
	}
	for _, r := range results {
		switch r.Action {
		case ActionMatch:
			s.Matches++
		case ActionMismatch:
			s.Mismatches++
		case ActionApplyError:
			s.ApplyErrors++
		}
	}
	return s
}

// #endregion replay

// #region sources
// FromLineage turns a stored snapshot chain, oldest first, into replay steps.
func FromLineage(chain []state.SnapshotRecord) ([]Step, error) {
	steps := make([]Step, 0, len(chain))
	for _, rec := range chain {
		p, err := patch.Decode(strings.NewReader(rec.PatchJSON))
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", rec.VersionID, err)
		}
		steps = append(steps, Step{ID: rec.VersionID, Patch: p, Want: rec.State})
	}
	return steps, nil
}

// FromEntries turns the files of one output unit into replay steps.
func FromEntries(entries []output.Entry) []Step {
	steps := make([]Step, len(entries))
	for i, e := range entries {
		steps[i] = Step{ID: fmt.Sprintf("%d_%d", e.Unit, e.Seq), Patch: e.Patch, Want: e.State}
	}
	return steps
}

// Final returns the recorded state of the last step, or the empty state.
func Final(steps []Step) state.Tree {
	if len(steps) == 0 {
		return state.Empty()
	}
	return steps[len(steps)-1].Want
}

// #endregion sources
