package value

import "fmt"

// String is a FieldValue holding UTF-8 text.
type String string

func (v String) Kind() Kind { return KindString }
func (v String) String() string { return string(v) }
func (v String) Equal(o FieldValue) bool {
	ov, ok := o.(String)
	return ok && v == ov
}

// Integer is a signed 64-bit FieldValue.
type Integer int64

func (v Integer) Kind() Kind { return KindInteger }
func (v Integer) String() string { return fmt.Sprintf("%d", int64(v)) }
func (v Integer) Equal(o FieldValue) bool {
	ov, ok := o.(Integer)
	return ok && v == ov
}

// Float is an IEEE-754 double FieldValue. NaN is never equal to NaN,
// matching the comparison semantics of spec.md §4.1.
type Float float64

func (v Float) Kind() Kind { return KindFloat }
func (v Float) String() string { return fmt.Sprintf("%g", float64(v)) }
func (v Float) Equal(o FieldValue) bool {
	ov, ok := o.(Float)
	if !ok {
		return false
	}
	if v != v || ov != ov { // either is NaN
		return false
	}
	return v == ov
}

// Boolean is a FieldValue; false < true under ordering.
type Boolean bool

func (v Boolean) Kind() Kind { return KindBoolean }
func (v Boolean) String() string { return fmt.Sprintf("%t", bool(v)) }
func (v Boolean) Equal(o FieldValue) bool {
	ov, ok := o.(Boolean)
	return ok && v == ov
}

// Path is an absolute or workspace-relative POSIX path string, stored in
// the form the workspace loader resolved it to (spec.md §4.3/§6).
type Path string

func (v Path) Kind() Kind { return KindPath }
func (v Path) String() string { return string(v) }
func (v Path) Equal(o FieldValue) bool {
	ov, ok := o.(Path)
	return ok && v == ov
}

// Enum holds a schema-constrained string value. Equality and storage use
// the canonical (schema) casing; only input matching is case-insensitive.
type Enum string

func (v Enum) Kind() Kind { return KindEnum }
func (v Enum) String() string { return string(v) }
func (v Enum) Equal(o FieldValue) bool {
	ov, ok := o.(Enum)
	return ok && v == ov
}

// EntityRef names another entity by FullId ("type.id" in source).
type EntityRef struct {
	Full FullId
}

func (v EntityRef) Kind() Kind { return KindEntityRef }
func (v EntityRef) String() string { return v.Full.String() }
func (v EntityRef) Equal(o FieldValue) bool {
	ov, ok := o.(EntityRef)
	return ok && v.Full.Equal(ov.Full)
}

// FieldRef names a specific field on another entity ("type.id.field").
// It materializes as a graph edge with kind field-ref, same as EntityRef,
// even though no query operator currently dispatches on the Field
// component (spec.md §9 Open Questions).
type FieldRef struct {
	Full  FullId
	Field FieldId
}

func (v FieldRef) Kind() Kind { return KindFieldRef }
func (v FieldRef) String() string { return v.Full.String() + "." + string(v.Field) }
func (v FieldRef) Equal(o FieldValue) bool {
	ov, ok := o.(FieldRef)
	return ok && v.Full.Equal(ov.Full) && v.Field == ov.Field
}

// List is a homogeneous sequence; ItemKind records the kind fixed by the
// first element (spec.md §4.2 "List homogeneity: determined lazily").
type List struct {
	ItemKind Kind
	Items    []FieldValue
}

func (v List) Kind() Kind { return KindList }

func (v List) String() string {
	s := "["
	for i, item := range v.Items {
		if i > 0 {
			s += ", "
		}
		s += item.String()
	}
	return s + "]"
}

func (v List) Equal(o FieldValue) bool {
	ov, ok := o.(List)
	if !ok || len(v.Items) != len(ov.Items) {
		return false
	}
	for i := range v.Items {
		if !v.Items[i].Equal(ov.Items[i]) {
			return false
		}
	}
	return true
}

// NewList validates homogeneity and constructs a List. An empty list has
// no fixed ItemKind; pass KindString as a harmless default when items is
// empty, matching "empty list allowed" in spec.md §4.2.
func NewList(items []FieldValue) (List, error) {
	if len(items) == 0 {
		return List{ItemKind: KindString, Items: items}, nil
	}
	kind := items[0].Kind()
	for i, item := range items[1:] {
		if item.Kind() != kind {
			return List{}, &HomogeneityError{Index: i + 1, Expected: kind, Got: item.Kind()}
		}
	}
	return List{ItemKind: kind, Items: items}, nil
}

// HomogeneityError reports a list whose items are not all the same Kind.
type HomogeneityError struct {
	Index    int
	Expected Kind
	Got      Kind
}

func (e *HomogeneityError) Error() string {
	return fmt.Sprintf("list item %d has kind %s, expected %s", e.Index, e.Got, e.Expected)
}
