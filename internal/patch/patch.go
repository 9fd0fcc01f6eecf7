// Package patch computes and applies RFC 6902 JSON Patch documents between
// state snapshots.
package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"

	"github.com/danielpatrickdp/vss-synth/internal/state"
)

// #region types
// Op is an RFC 6902 operation name.
type Op string

const (
	Add     Op = "add"
	Remove  Op = "remove"
	Replace Op = "replace"
	Move    Op = "move"
	Copy    Op = "copy"
	Test    Op = "test"
)

// Operation is a single RFC 6902 operation.
type Operation struct {
	Op    Op     `json:"op"`
	From  string `json:"from,omitempty"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Patch is an ordered list of operations. A nil Patch encodes as [].
type Patch []Operation

func (p Patch) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Operation(p))
}

// #endregion types

// #region compute
// Compute returns the operations that transform old into updated. Object keys
// are visited in sorted order, so equal inputs always give the same patch, and
// unchanged keys produce no operation. Add and replace values are taken from
// updated so leaf kinds survive encoding (50.0 stays a float).
func Compute(old, updated state.Tree) (Patch, error) {
	diff, err := jsondiff.Compare(old.Plain(), updated.Plain())
	if err != nil {
		return nil, fmt.Errorf("diff states: %w", err)
	}
	raw, err := json.Marshal(diff)
	if err != nil {
		return nil, fmt.Errorf("encode diff: %w", err)
	}
	var ops []Operation
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("decode diff: %w", err)
	}

	out := make(Patch, 0, len(ops))
	for _, op := range ops {
		if op.Op == Add || op.Op == Replace {
			tokens, err := ParsePointer(op.Path)
			if err != nil {
				return nil, err
			}
			if v, ok := updated.At(tokens); ok {
				op.Value = v
			}
		}
		out = append(out, op)
	}
	return out, nil
}

// #endregion compute

// #region apply
// Apply applies p to doc and decodes the result as a state.
func Apply(doc state.Tree, p Patch) (state.Tree, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return state.Tree{}, fmt.Errorf("encode document: %w", err)
	}
	patchJSON, err := json.Marshal(p)
	if err != nil {
		return state.Tree{}, fmt.Errorf("encode patch: %w", err)
	}
	out, err := ApplyJSON(docJSON, patchJSON)
	if err != nil {
		return state.Tree{}, err
	}
	return state.Decode(bytes.NewReader(out))
}

// ApplyJSON applies an encoded patch to an encoded document.
func ApplyJSON(docJSON, patchJSON []byte) ([]byte, error) {
	jp, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	out, err := jp.Apply(docJSON)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	return out, nil
}

// #endregion apply

// #region decode
// Decode reads an encoded patch. Numbers are kept as json.Number so that
// re-encoding reproduces them verbatim.
func Decode(r io.Reader) (Patch, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var p Patch
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	for i, op := range p {
		if op.Op == "" || (op.Path == "" && op.Op != Add && op.Op != Replace && op.Op != Test) {
			return nil, fmt.Errorf("decode patch: operation %d is incomplete", i)
		}
	}
	return p, nil
}

// #endregion decode

// #region summary
// Summary counts operations by kind.
type Summary struct {
	Adds     int
	Removes  int
	Replaces int
	Other    int
}

// Total is the number of operations counted.
func (s Summary) Total() int { return s.Adds + s.Removes + s.Replaces + s.Other }

// Summarize counts the operations of p.
func Summarize(p Patch) Summary {
	var s Summary
	for _, op := range p {
		switch op.Op {
		case Add:
			s.Adds++
		case Remove:
			s.Removes++
		case Replace:
			s.Replaces++
		default:
			s.Other++
		}
	}
	return s
}

// #endregion summary
