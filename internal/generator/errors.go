package generator

import "fmt"

// #region schema-error
// SchemaError reports a schema leaf whose attributes cannot drive generation,
// most commonly a missing datatype.
type SchemaError struct {
	Path      string
	Attribute string
	Reason    string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema leaf %q: attribute %q %s", e.Path, e.Attribute, e.Reason)
}

// #endregion schema-error

// #region precondition-error
// PreconditionError reports an operation invoked on input it was not designed for.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// #endregion precondition-error

// #region range-error
// RangeError reports a probability argument outside [0, 1].
type RangeError struct {
	Name  string
	Value float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %v out of range [0, 1]", e.Name, e.Value)
}

func checkRatio(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return &RangeError{Name: name, Value: v}
	}
	return nil
}

// #endregion range-error
