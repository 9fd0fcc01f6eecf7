package schema

import (
	"iter"
	"slices"
	"strconv"
)

// #region leaves
// Leaves walks the schema and yields every leaf descriptor with its
// hierarchical path. A mapping is a leaf when none of its direct values is a
// mapping; otherwise each child is visited, in sorted key order, with its key
// appended to the path. Sequences are walked by index ("[i]" suffix). Scalars
// sitting next to child mappings are not leaves and are skipped.
//
// The sequence is finite and can be ranged over any number of times.
func (s *Schema) Leaves() iter.Seq[Leaf] {
	return func(yield func(Leaf) bool) {
		walkSchema(s.root, "", yield)
	}
}

// Len counts the schema's leaves.
func (s *Schema) Len() int {
	n := 0
	for range s.Leaves() {
		n++
	}
	return n
}

func walkSchema(node any, path string, yield func(Leaf) bool) bool {
	switch t := node.(type) {
	case map[string]any:
		if isLeafDescriptor(t) {
			return yield(Leaf{Path: path, Attrs: t})
		}
		for _, k := range sortedKeys(t) {
			if !walkSchema(t[k], JoinPath(path, k), yield) {
				return false
			}
		}
	case []any:
		for i, item := range t {
			if !walkSchema(item, path+"["+strconv.Itoa(i)+"]", yield) {
				return false
			}
		}
	}
	return true
}

func isLeafDescriptor(m map[string]any) bool {
	for _, v := range m {
		if _, nested := v.(map[string]any); nested {
			return false
		}
	}
	return true
}

// #endregion leaves

// #region paths
// JoinPath appends key to a dot-joined path.
func JoinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// #endregion paths
