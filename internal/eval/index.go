package eval

import (
	"strings"

	"github.com/danielpatrickdp/vss-synth/internal/generator"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

// Index maps state paths (children segments removed) to schema descriptors.
type Index struct {
	byPath  map[string]generator.Descriptor
	covered int
}

// NewIndex indexes the descriptors of a generator, typically g.Leaves().
func NewIndex(leaves []generator.Descriptor) Index {
	idx := Index{byPath: make(map[string]generator.Descriptor, len(leaves))}
	for _, d := range leaves {
		idx.byPath[statePath(d.Path)] = d
		if d.Covered() {
			idx.covered++
		}
	}
	return idx
}

// Lookup returns the descriptor for a state-mode leaf path.
func (idx Index) Lookup(path string) (generator.Descriptor, bool) {
	d, ok := idx.byPath[path]
	return d, ok
}

// Covered is the number of schema leaves that a rule can generate.
func (idx Index) Covered() int { return idx.covered }

func statePath(schemaPath string) string {
	return strings.Join(state.SplitPath(schemaPath), ".")
}
