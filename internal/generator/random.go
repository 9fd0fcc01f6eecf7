package generator

import (
	"math/rand/v2"

	"github.com/danielpatrickdp/vss-synth/internal/value"
)

const (
	letters      = "abcdefghijklmnopqrstuvwxyz"
	stringLength = 10
	maxArrayLen  = 5
)

// NewRand returns a PCG-backed source. The same seed always yields the same
// generation sequence.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func randPercent(r *rand.Rand) float64 { return r.Float64() * 100 }

// randSigned is uniform in [-100, 100].
func randSigned(r *rand.Rand) int64 { return int64(r.IntN(201) - 100) }

// randUnsigned is uniform in [0, 100].
func randUnsigned(r *rand.Rand) int64 { return int64(r.IntN(101)) }

func randString(r *rand.Rand) string {
	b := make([]byte, stringLength)
	for i := range b {
		b[i] = letters[r.IntN(len(letters))]
	}
	return string(b)
}

func randArray(r *rand.Rand, elem func() value.Value) value.Value {
	elems := make([]value.Value, 1+r.IntN(maxArrayLen))
	for i := range elems {
		elems[i] = elem()
	}
	return value.ArrayOf(elems...)
}
