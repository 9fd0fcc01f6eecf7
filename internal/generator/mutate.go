package generator

import (
	"math/rand/v2"

	"github.com/danielpatrickdp/vss-synth/internal/value"
)

// #region mutate
// Mutate regenerates a leaf while preserving its kind: strings get a new
// random string, booleans flip, integers are redrawn from [0, 100] and floats
// from [0, 100). Draws equal to the previous value are repeated, so a
// mutated scalar always differs from prev. Arrays and invalid values are
// returned unchanged.
func Mutate(prev value.Value, r *rand.Rand) value.Value {
	switch prev.Kind() {
	case value.Boolean:
		return value.Bool(!prev.AsBool())
	case value.String:
		for {
			if s := randString(r); s != prev.AsString() {
				return value.StringOf(s)
			}
		}
	case value.Integer:
		for {
			if i := randUnsigned(r); i != prev.AsInt() {
				return value.Int(i)
			}
		}
	case value.Float:
		for {
			if f := randPercent(r); f != prev.AsFloat() {
				return value.FloatOf(f)
			}
		}
	}
	return prev
}

// #endregion mutate
