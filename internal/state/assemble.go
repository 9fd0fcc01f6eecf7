package state

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/danielpatrickdp/vss-synth/internal/value"
)

// #region errors
var (
	// ErrPathConflict is returned when a path descends through an existing leaf,
	// or assigns a leaf where a mapping already exists.
	ErrPathConflict = errors.New("path conflicts with existing node")

	// ErrEmptyPath is returned when a path has no segment left once structural
	// segments are removed.
	ErrEmptyPath = errors.New("path has no state segments")
)

// #endregion errors

// #region split
// structuralSegment is the schema's container marker; it has no state meaning.
const structuralSegment = "children"

// SplitPath splits a dot-joined hierarchical path and drops structural
// "children" segments.
func SplitPath(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p == structuralSegment {
			continue
		}
		out = append(out, p)
	}
	return out
}

// #endregion split

// #region builder
// Builder assembles a Tree from (path, value) pairs. Paths sharing a prefix
// share the same interior mapping.
type Builder struct {
	root map[string]any
}

// NewBuilder returns a builder for an empty state.
func NewBuilder() *Builder {
	return &Builder{root: map[string]any{}}
}

// Set assigns v at path: descend or create a mapping for every segment but
// the last, then assign at the last segment.
func (b *Builder) Set(path string, v value.Value) error {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyPath, path)
	}

	current := b.root
	parents, last := segments[:len(segments)-1], segments[len(segments)-1]
	for _, seg := range parents {
		switch n := current[seg].(type) {
		case nil:
			child := map[string]any{}
			current[seg] = child
			current = child
		case map[string]any:
			current = n
		default:
			return fmt.Errorf("%w: %s at segment %q", ErrPathConflict, path, seg)
		}
	}

	if _, isMap := current[last].(map[string]any); isMap {
		return fmt.Errorf("%w: %s", ErrPathConflict, path)
	}
	current[last] = v
	return nil
}

// Tree returns the assembled state. The builder must not be used afterwards.
func (b *Builder) Tree() Tree {
	t := Tree{root: b.root}
	b.root = nil
	return t
}

// Assemble builds a Tree from a sequence of pairs, stopping at the first error.
func Assemble(pairs iter.Seq2[string, value.Value]) (Tree, error) {
	b := NewBuilder()
	for path, v := range pairs {
		if err := b.Set(path, v); err != nil {
			return Tree{}, err
		}
	}
	return b.Tree(), nil
}

// #endregion builder
