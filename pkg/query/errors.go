package query

import (
	"fmt"

	"github.com/42futures/firm/pkg/lex"
)

// ParseError is the single fault a query parse failed on. Unlike pkg/dsl,
// the query grammar does not recover and collect multiple errors — a
// malformed query is rejected whole (spec.md §4.6, §7).
type ParseError struct {
	Pos     lex.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// MixedCurrenciesError reports a sum/average/median over a Currency field
// whose entities don't all share one ISO-4217 code (spec.md §4.7, §7).
type MixedCurrenciesError struct {
	First, Second string
}

func (e *MixedCurrenciesError) Error() string {
	return fmt.Sprintf("mixed currencies in aggregation: %s and %s", e.First, e.Second)
}

// EmptyAggregationError reports an average/median over zero qualifying
// entities (spec.md §4.7, §7).
type EmptyAggregationError struct {
	Field string
	Kind  string
}

func (e *EmptyAggregationError) Error() string {
	return fmt.Sprintf("%s over field %q has no values to aggregate", e.Kind, e.Field)
}
