package graph

import (
	"fmt"
	"strings"

	"github.com/42futures/firm/pkg/schema"
	"github.com/42futures/firm/pkg/value"
)

// DuplicateEntityError reports add_entities finding a FullId already
// present in the graph.
type DuplicateEntityError struct {
	FullId value.FullId
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("duplicate entity %s", e.FullId)
}

// SchemaViolationError collects every schema.ValidationError found while
// validating pending entities in one Build call (spec.md §7: "the loader
// collects multiple DuplicateEntity / DuplicateSchema / SchemaViolation
// errors per build") — unlike DanglingReferenceError below, this does not
// short-circuit on the first violation.
type SchemaViolationError struct {
	Errors []*schema.ValidationError
}

func (e *SchemaViolationError) Error() string {
	lines := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		lines[i] = ve.Error()
	}
	return strings.Join(lines, "\n")
}

// DanglingReferenceError reports a reference field naming an entity that
// doesn't exist in the built graph (spec.md §4.5, §7). Resolution
// short-circuits on the first one found.
type DanglingReferenceError struct {
	Src value.FullId
	Via value.FieldId
	Dst value.FullId
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference %s.%s -> %s: target does not exist", e.Src, e.Via, e.Dst)
}

// NotFrozenError is raised by Serialize when called before Build has
// completed. A second Build call raises AlreadyFrozenError instead.
type NotFrozenError struct {
	Op string
}

func (e *NotFrozenError) Error() string {
	return fmt.Sprintf("graph.%s: graph has not been built yet", e.Op)
}

// AlreadyFrozenError is raised by add_entities or build() after the graph
// has already been frozen — per spec.md §4.5 "after freezing, no mutation
// operations exist".
type AlreadyFrozenError struct {
	Op string
}

func (e *AlreadyFrozenError) Error() string {
	return fmt.Sprintf("graph.%s: graph is frozen", e.Op)
}

// CacheFormatError reports an unreadable or wrong-major-version cache
// file (spec.md §7).
type CacheFormatError struct {
	Path   string
	Reason string
}

func (e *CacheFormatError) Error() string {
	return fmt.Sprintf("cache format error reading %s: %s", e.Path, e.Reason)
}
