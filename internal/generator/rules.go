package generator

import (
	"math/rand/v2"

	"github.com/danielpatrickdp/vss-synth/internal/schema"
	"github.com/danielpatrickdp/vss-synth/internal/value"
)

// #region descriptor
// Descriptor is a validated schema leaf.
type Descriptor struct {
	Path     string
	Datatype schema.Datatype
	Unit     string
	Allowed  []value.Value
}

// Describe validates a schema leaf. A missing datatype, or an allowed
// attribute that is not a non-empty list of scalars, is a SchemaError.
func Describe(leaf schema.Leaf) (Descriptor, error) {
	dt, ok := leaf.Datatype()
	if !ok {
		return Descriptor{}, &SchemaError{Path: leaf.Path, Attribute: schema.KeyDatatype, Reason: "is required"}
	}
	d := Descriptor{Path: leaf.Path, Datatype: dt, Unit: leaf.Unit()}

	raw, ok := leaf.Allowed()
	if !ok {
		return d, nil
	}
	list, isList := raw.([]any)
	if !isList || len(list) == 0 {
		return Descriptor{}, &SchemaError{Path: leaf.Path, Attribute: schema.KeyAllowed, Reason: "must be a non-empty list"}
	}
	d.Allowed = make([]value.Value, len(list))
	for i, lit := range list {
		v, err := value.FromAny(lit)
		if err != nil || v.Kind() == value.Array {
			return Descriptor{}, &SchemaError{Path: leaf.Path, Attribute: schema.KeyAllowed, Reason: "must hold scalar literals"}
		}
		d.Allowed[i] = v
	}
	return d, nil
}

// #endregion descriptor

// #region rules
// Synthesize draws a value for d. The first matching rule wins:
//
//  1. boolean                                  uniform boolean
//  2. int8, uint8, float with unit "percent"   [0, 100), truncated unless float
//  3. allowed enumeration                      uniform choice
//  4. double, float                            [0, 100)
//  5. float[]                                  1-5 elements per rule 4
//  6. int8, int16, int32                       integer in [-100, 100]
//  7. string                                   10 lowercase letters
//  8. string[]                                 1-5 elements per rule 7
//  9. uint8, uint16, uint32                    integer in [0, 100]
//  10. uint8[]                                 1-5 elements per rule 9
//
// ok is false when no rule matches; the leaf is then left out of the state.
func (d Descriptor) Synthesize(r *rand.Rand) (v value.Value, ok bool) {
	switch {
	case d.Datatype == schema.Boolean:
		return value.Bool(r.IntN(2) == 1), true
	case d.isPercent():
		f := randPercent(r)
		if d.Datatype == schema.Float {
			return value.FloatOf(f), true
		}
		return value.Int(int64(f)), true
	case d.Allowed != nil:
		return d.Allowed[r.IntN(len(d.Allowed))], true
	}

	switch d.Datatype {
	case schema.Double, schema.Float:
		return value.FloatOf(randPercent(r)), true
	case schema.FloatArray:
		return randArray(r, func() value.Value { return value.FloatOf(randPercent(r)) }), true
	case schema.Int8, schema.Int16, schema.Int32:
		return value.Int(randSigned(r)), true
	case schema.String:
		return value.StringOf(randString(r)), true
	case schema.StringArray:
		return randArray(r, func() value.Value { return value.StringOf(randString(r)) }), true
	case schema.Uint8, schema.Uint16, schema.Uint32:
		return value.Int(randUnsigned(r)), true
	case schema.Uint8Array:
		return randArray(r, func() value.Value { return value.Int(randUnsigned(r)) }), true
	}
	return value.Value{}, false
}

func (d Descriptor) isPercent() bool {
	if d.Unit != schema.UnitPercent {
		return false
	}
	return d.Datatype == schema.Int8 || d.Datatype == schema.Uint8 || d.Datatype == schema.Float
}

// Accepts reports whether a leaf of kind k is consistent with d under the
// rule table. Leaves with an allowed enumeration accept the kinds of their
// literals unless an earlier rule fixes the kind.
func (d Descriptor) Accepts(k value.Kind) bool {
	switch {
	case d.Datatype == schema.Boolean:
		return k == value.Boolean
	case d.isPercent():
		if d.Datatype == schema.Float {
			return k == value.Float
		}
		return k == value.Integer
	case d.Allowed != nil:
		for _, a := range d.Allowed {
			if a.Kind() == k {
				return true
			}
		}
		return false
	}

	switch d.Datatype {
	case schema.Double, schema.Float:
		return k == value.Float
	case schema.Int8, schema.Int16, schema.Int32, schema.Uint8, schema.Uint16, schema.Uint32:
		return k == value.Integer
	case schema.String:
		return k == value.String
	case schema.FloatArray, schema.StringArray, schema.Uint8Array:
		return k == value.Array
	}
	return false
}

// Covered reports whether some rule generates values for d.
func (d Descriptor) Covered() bool {
	switch d.Datatype {
	case schema.Boolean, schema.Double, schema.Float, schema.FloatArray,
		schema.Int8, schema.Int16, schema.Int32, schema.String, schema.StringArray,
		schema.Uint8, schema.Uint16, schema.Uint32, schema.Uint8Array:
		return true
	}
	return d.Allowed != nil
}

// #endregion rules
