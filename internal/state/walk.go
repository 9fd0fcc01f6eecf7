package state

import (
	"iter"
	"slices"

	"github.com/danielpatrickdp/vss-synth/internal/value"
)

// #region leaves
// Leaves walks t in sorted key order and yields every leaf with its dot-joined
// path. Array values are yielded whole, never element by element. Empty
// interior mappings contribute nothing.
func (t Tree) Leaves() iter.Seq2[string, value.Value] {
	return func(yield func(string, value.Value) bool) {
		walkState(t.root, "", yield)
	}
}

func walkState(m map[string]any, path string, yield func(string, value.Value) bool) bool {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		p := joinPath(path, k)
		switch n := m[k].(type) {
		case map[string]any:
			if !walkState(n, p, yield) {
				return false
			}
		case value.Value:
			if !yield(p, n) {
				return false
			}
		}
	}
	return true
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// #endregion leaves
