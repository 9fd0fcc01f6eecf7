// Package generator synthesizes random vehicle states from a schema and
// evolves them into successor states.
//
// A Generator owns its random source. Callers that want reproducible output
// pass a seeded *rand.Rand (see NewRand); a Generator is not safe for
// concurrent use.
package generator

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/danielpatrickdp/vss-synth/internal/patch"
	"github.com/danielpatrickdp/vss-synth/internal/schema"
	"github.com/danielpatrickdp/vss-synth/internal/state"
	"github.com/danielpatrickdp/vss-synth/internal/value"
)

// Snapshot is a generated state and the patch that produces it from its
// predecessor. Skipped lists included leaves whose datatype has no
// generation rule.
type Snapshot struct {
	State   state.Tree
	Patch   patch.Patch
	Skipped []string
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger routes per-leaf diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

type Generator struct {
	leaves []Descriptor
	rng    *rand.Rand
	logger *slog.Logger
}

// New validates every leaf of s up front, so a schema with a bad leaf fails
// here regardless of which leaves a later draw would include. A nil rng is
// replaced by a randomly seeded one.
func New(s *schema.Schema, rng *rand.Rand, opts ...Option) (*Generator, error) {
	if s == nil {
		return nil, &PreconditionError{Op: "generator.New", Reason: "schema is nil"}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g := &Generator{rng: rng, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(g)
	}
	for leaf := range s.Leaves() {
		d, err := Describe(leaf)
		if err != nil {
			return nil, err
		}
		g.leaves = append(g.leaves, d)
	}
	return g, nil
}

// Leaves returns the validated descriptors in walk order.
func (g *Generator) Leaves() []Descriptor {
	out := make([]Descriptor, len(g.leaves))
	copy(out, g.leaves)
	return out
}

// #region generate
// Generate builds an initial state. Each schema leaf is included with
// probability datasetSize and, when included, gets a value from the rule
// table. The patch adds everything to an empty document.
func (g *Generator) Generate(datasetSize float64) (Snapshot, error) {
	if err := checkRatio("dataset size", datasetSize); err != nil {
		return Snapshot{}, err
	}

	b := state.NewBuilder()
	var skipped []string
	for _, d := range g.leaves {
		if g.rng.Float64() >= datasetSize {
			continue
		}
		v, ok := d.Synthesize(g.rng)
		if !ok {
			g.logger.Debug("no generation rule for datatype", "path", d.Path, "datatype", d.Datatype)
			skipped = append(skipped, d.Path)
			continue
		}
		if err := b.Set(d.Path, v); err != nil {
			return Snapshot{}, fmt.Errorf("generate: %w", err)
		}
	}
	tree := b.Tree()

	p, err := patch.Compute(state.Empty(), tree)
	if err != nil {
		return Snapshot{}, fmt.Errorf("generate: %w", err)
	}
	return Snapshot{State: tree, Patch: p, Skipped: skipped}, nil
}

// #endregion generate

// #region next
// Next derives a successor of prev. Every leaf of prev survives; each is
// regenerated with probability changeRate (see Mutate) and copied otherwise.
// The schema is not consulted.
func (g *Generator) Next(prev state.Tree, changeRate float64) (Snapshot, error) {
	if prev.IsZero() {
		return Snapshot{}, &PreconditionError{Op: "next", Reason: "previous state is not a mapping"}
	}
	if err := checkRatio("change rate", changeRate); err != nil {
		return Snapshot{}, err
	}

	b := state.NewBuilder()
	for path, v := range prev.Leaves() {
		if g.rng.Float64() < changeRate {
			v = Mutate(v, g.rng)
		}
		if err := b.Set(path, v); err != nil {
			return Snapshot{}, fmt.Errorf("next: %w", err)
		}
	}
	tree := b.Tree()

	p, err := patch.Compute(prev, tree)
	if err != nil {
		return Snapshot{}, fmt.Errorf("next: %w", err)
	}
	return Snapshot{State: tree, Patch: p}, nil
}

// #endregion next

// ExpectedKind reports whether v is a kind the rule table could have
// produced for d.
func ExpectedKind(d Descriptor, v value.Value) bool {
	return d.Accepts(v.Kind())
}
