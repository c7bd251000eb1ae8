// Package graph implements the validated, reference-resolved entity
// graph: node/edge storage, BFS traversal, and a serialized on-disk cache
// with current/backup rotation (spec.md §4.5).
package graph

import "github.com/42futures/firm/pkg/value"

// Entity is one built node: its identity and its resolved field values.
// Fields is keyed by FieldId rather than the raw source string, since
// pkg/dsl only guarantees lexical identifier shape — FieldId construction
// is where the reserved-word check happens.
type Entity struct {
	Full   value.FullId
	Fields map[value.FieldId]value.FieldValue
}

// EdgeKind distinguishes an EntityRef-derived edge from a FieldRef-derived
// one; both materialize as graph edges (spec.md §9 "Polymorphism over
// field values" / the FieldRef doc comment in pkg/value).
type EdgeKind int

const (
	EdgeEntityRef EdgeKind = iota
	EdgeFieldRef
)

func (k EdgeKind) String() string {
	if k == EdgeFieldRef {
		return "field-ref"
	}
	return "entity-ref"
}

// Edge is one materialized reference: Src names the entity whose field Via
// held the reference; Dst is the target entity.
type Edge struct {
	Src  value.FullId
	Dst  value.FullId
	Via  value.FieldId
	Kind EdgeKind
}
