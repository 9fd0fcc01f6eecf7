// Package value implements the tagged leaf values carried by a state tree.
// Every leaf keeps the kind it was created with, so integer and float leaves
// never blur into each other across mutation or a JSON round trip.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// #region kind
// Kind is the runtime kind tag of a leaf value.
type Kind uint8

const (
	Invalid Kind = iota
	Boolean
	Integer
	Float
	String
	Array
)

var kindNames = [...]string{
	Invalid: "invalid",
	Boolean: "boolean",
	Integer: "integer",
	Float:   "float",
	String:  "string",
	Array:   "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Scalar reports whether values of this kind are mutation candidates.
func (k Kind) Scalar() bool {
	return k == Boolean || k == Integer || k == Float || k == String
}

// #endregion kind

// #region value
// Value is an immutable tagged leaf. The zero Value has kind Invalid.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string
	elems []Value
}

func Bool(b bool) Value { return Value{kind: Boolean, b: b} }
func Int(i int64) Value { return Value{kind: Integer, i: i} }
func FloatOf(f float64) Value { return Value{kind: Float, f: f} }
func StringOf(s string) Value { return Value{kind: String, s: s} }

// ArrayOf copies elems into a new array value.
func ArrayOf(elems ...Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: Array, elems: cp}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsValid() bool { return v.kind != Invalid }
func (v Value) AsBool() bool { return v.b }
func (v Value) AsInt() int64 { return v.i }
func (v Value) AsFloat() float64 { return v.f }
func (v Value) AsString() string { return v.s }
func (v Value) Len() int { return len(v.elems) }

// Elems returns a copy of the array elements (nil for non-array kinds).
func (v Value) Elems() []Value {
	if v.kind != Array {
		return nil
	}
	cp := make([]Value, len(v.elems))
	copy(cp, v.elems)
	return cp
}

// Equal reports whether v and o have the same kind and the same contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Boolean:
		return v.b == o.b
	case Integer:
		return v.i == o.i
	case Float:
		return v.f == o.f
	case String:
		return v.s == o.s
	case Array:
		if len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// Interface returns the plain Go representation (bool, int64, float64, string, []any).
func (v Value) Interface() any {
	switch v.kind {
	case Boolean:
		return v.b
	case Integer:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			out[i] = e.Interface()
		}
		return out
	}
	return nil
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	return string(b)
}

// #endregion value

// #region json
// MarshalJSON encodes v. Floats always carry a fractional part or exponent so
// decoding the output yields a Float again.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Boolean:
		return strconv.AppendBool(nil, v.b), nil
	case Integer:
		return strconv.AppendInt(nil, v.i, 10), nil
	case Float:
		return formatFloat(v.f)
	case String:
		return json.Marshal(v.s)
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("marshal %s value", v.kind)
}

// UnmarshalJSON decodes a scalar or an array of scalars.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	out, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func formatFloat(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported float value %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

// #endregion json

// #region from-any
// FromAny converts a decoded JSON/YAML literal into a Value. json.Number
// literals without a fraction or exponent become Integer, all others Float.
// Nested arrays and mappings are rejected: a leaf is a scalar or an array of scalars.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return StringOf(t), nil
	case json.Number:
		return fromNumber(t)
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case float32:
		return FloatOf(float64(t)), nil
	case float64:
		return FloatOf(t), nil
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			if _, nested := e.([]any); nested {
				return Value{}, fmt.Errorf("element %d: nested arrays are not leaf values", i)
			}
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return Value{kind: Array, elems: elems}, nil
	case nil:
		return Value{}, fmt.Errorf("null is not a leaf value")
	}
	return Value{}, fmt.Errorf("unsupported leaf type %T", x)
}

func fromNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("parse number %q: %w", s, err)
	}
	return FloatOf(f), nil
}

// #endregion from-any
