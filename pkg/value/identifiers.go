// Package value implements the FieldValue tagged union (spec.md §4.1):
// the closed set of kinds a field can hold, their structural equality,
// total ordering within a kind, and the literal-construction helpers
// shared by the DSL parser (pkg/dsl) and the query parser (pkg/query).
package value

import (
	"fmt"
	"regexp"
)

var identifierRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var reservedWords = map[string]bool{
	"schema": true, "field": true, "true": true, "false": true,
	"enum": true, "path": true, "at": true, "UTC": true,
}

// EntityType is a snake_case token naming a kind of entity (person, task, …).
type EntityType string

// EntityId is a snake_case token unique within its EntityType.
type EntityId string

// FieldId is a snake_case token unique within an entity.
type FieldId string

// FullId is the graph's node key: the pair (type, id) rendered "type.id".
type FullId struct {
	Type EntityType
	ID   EntityId
}

func (f FullId) String() string {
	return string(f.Type) + "." + string(f.ID)
}

// Equal reports structural equality.
func (f FullId) Equal(o FullId) bool {
	return f.Type == o.Type && f.ID == o.ID
}

// ValidIdentifier reports whether s is a legal lowercase snake_case
// `[a-z][a-z0-9_]*` identifier and not a reserved word, per spec.md §4.2.
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s) && !reservedWords[s]
}

// NewEntityType validates and constructs an EntityType.
func NewEntityType(s string) (EntityType, error) {
	if !ValidIdentifier(s) {
		return "", fmt.Errorf("invalid entity type %q: must be snake_case and not a reserved word", s)
	}
	return EntityType(s), nil
}

// NewFieldId validates and constructs a FieldId.
func NewFieldId(s string) (FieldId, error) {
	if !ValidIdentifier(s) {
		return "", fmt.Errorf("invalid field id %q: must be snake_case and not a reserved word", s)
	}
	return FieldId(s), nil
}

// NewEntityId validates and constructs an EntityId.
func NewEntityId(s string) (EntityId, error) {
	if !ValidIdentifier(s) {
		return "", fmt.Errorf("invalid entity id %q: must be snake_case and not a reserved word", s)
	}
	return EntityId(s), nil
}
