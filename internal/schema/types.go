package schema

// #region datatypes
// Datatype is the declared datatype of a schema leaf.
type Datatype string

const (
	Boolean     Datatype = "boolean"
	Int8        Datatype = "int8"
	Int16       Datatype = "int16"
	Int32       Datatype = "int32"
	Uint8       Datatype = "uint8"
	Uint16      Datatype = "uint16"
	Uint32      Datatype = "uint32"
	Float       Datatype = "float"
	Double      Datatype = "double"
	FloatArray  Datatype = "float[]"
	String      Datatype = "string"
	StringArray Datatype = "string[]"
	Uint8Array  Datatype = "uint8[]"
)

// #endregion datatypes

// #region keys
// Attribute keys understood on a leaf descriptor.
const (
	KeyDatatype = "datatype"
	KeyUnit     = "unit"
	KeyAllowed  = "allowed"
)

// ChildrenKey nests a container's children. It is structural only and never
// appears in a generated state.
const ChildrenKey = "children"

// AnnotationKeys carry no generative meaning and are stripped on load.
var AnnotationKeys = []string{"description", "uuid", "type", "comment", "deprecated"}

// UnitPercent selects the percentage rule for int8, uint8 and float leaves.
const UnitPercent = "percent"

// #endregion keys

// #region leaf
// Leaf is a flat descriptor object found by the schema walk, together with its
// dot-joined hierarchical path (children segments included).
type Leaf struct {
	Path  string
	Attrs map[string]any
}

// Datatype returns the declared datatype. ok is false when the attribute is
// absent or not a string.
func (l Leaf) Datatype() (dt Datatype, ok bool) {
	raw, present := l.Attrs[KeyDatatype]
	if !present {
		return "", false
	}
	s, isString := raw.(string)
	if !isString {
		return "", false
	}
	return Datatype(s), true
}

// Unit returns the unit attribute, or "" when absent.
func (l Leaf) Unit() string {
	s, _ := l.Attrs[KeyUnit].(string)
	return s
}

// Allowed returns the raw allowed enumeration, if declared.
func (l Leaf) Allowed() (raw any, ok bool) {
	raw, ok = l.Attrs[KeyAllowed]
	return raw, ok
}

// #endregion leaf
