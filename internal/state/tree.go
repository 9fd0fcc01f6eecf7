package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/danielpatrickdp/vss-synth/internal/value"
)

// #region tree
// Tree is an immutable state snapshot: nested mappings whose leaves are tagged
// values. Interior nodes are map[string]any, leaves are value.Value.
//
// The zero Tree is "not a state" (it was never generated or decoded) and is
// distinct from an empty state; see IsZero.
type Tree struct {
	root map[string]any
}

// Empty returns the empty state {}.
func Empty() Tree { return Tree{root: map[string]any{}} }

// IsZero reports whether t was never produced by a builder or decoder.
func (t Tree) IsZero() bool { return t.root == nil }

// Len counts the leaves of t.
func (t Tree) Len() int {
	n := 0
	for range t.Leaves() {
		n++
	}
	return n
}

// Get returns the leaf at a dot-joined state path.
func (t Tree) Get(path string) (value.Value, bool) {
	node, ok := t.At(SplitPath(path))
	if !ok {
		return value.Value{}, false
	}
	v, isLeaf := node.(value.Value)
	return v, isLeaf
}

// At resolves RFC 6901 pointer tokens against t. The result is a value.Value,
// an element of an array value, or an interior map[string]any that callers
// must not modify.
func (t Tree) At(tokens []string) (any, bool) {
	var node any = t.root
	for _, tok := range tokens {
		switch n := node.(type) {
		case map[string]any:
			child, ok := n[tok]
			if !ok {
				return nil, false
			}
			node = child
		case value.Value:
			if n.Kind() != value.Array {
				return nil, false
			}
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= n.Len() {
				return nil, false
			}
			node = n.Elems()[idx]
		default:
			return nil, false
		}
	}
	return node, true
}

// Equal reports deep equality, including leaf kinds.
func (t Tree) Equal(o Tree) bool {
	if t.IsZero() != o.IsZero() {
		return false
	}
	return equalNodes(t.root, o.root)
}

func equalNodes(a, b any) bool {
	switch x := a.(type) {
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !equalNodes(xv, yv) {
				return false
			}
		}
		return true
	case value.Value:
		y, ok := b.(value.Value)
		return ok && x.Equal(y)
	}
	return false
}

// Plain returns t as untyped JSON-style data (maps, bool, int64, float64,
// string, []any). The result shares nothing with t.
func (t Tree) Plain() map[string]any {
	return plainMap(t.root)
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch n := v.(type) {
		case map[string]any:
			out[k] = plainMap(n)
		case value.Value:
			out[k] = n.Interface()
		}
	}
	return out
}

// #endregion tree

// #region json
// MarshalJSON encodes t with sorted keys. A zero Tree encodes as {}.
func (t Tree) MarshalJSON() ([]byte, error) {
	if t.root == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t.root)
}

// UnmarshalJSON decodes a state object. Numbers without a fraction or exponent
// become Integer leaves, others Float; arrays become Array leaves.
func (t *Tree) UnmarshalJSON(data []byte) error {
	tree, err := Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*t = tree
	return nil
}

var errNotObject = errors.New("state is not a JSON object")

// Decode reads one state object from r.
func Decode(r io.Reader) (Tree, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Tree{}, fmt.Errorf("decode state: %w", err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return Tree{}, errNotObject
	}
	root, err := typedMap(m, "")
	if err != nil {
		return Tree{}, err
	}
	return Tree{root: root}, nil
}

// FromPlain builds a Tree from untyped data such as the output of Plain or a
// decoded JSON document.
func FromPlain(m map[string]any) (Tree, error) {
	if m == nil {
		return Tree{}, errNotObject
	}
	root, err := typedMap(m, "")
	if err != nil {
		return Tree{}, err
	}
	return Tree{root: root}, nil
}

func typedMap(m map[string]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		p := joinPath(path, k)
		if child, ok := v.(map[string]any); ok {
			sub, err := typedMap(child, p)
			if err != nil {
				return nil, err
			}
			out[k] = sub
			continue
		}
		leaf, err := value.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("state leaf %s: %w", p, err)
		}
		out[k] = leaf
	}
	return out, nil
}

// #endregion json
