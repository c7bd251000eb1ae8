package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/42futures/firm/pkg/value"
)

func TestParseFromStar(t *testing.T) {
	q, err := Parse("from *")
	require.NoError(t, err)
	assert.True(t, q.Selector.All)
	assert.Empty(t, q.Ops)
	assert.Nil(t, q.Aggregation)
}

func TestParseFromType(t *testing.T) {
	q, err := Parse("from person")
	require.NoError(t, err)
	assert.False(t, q.Selector.All)
	assert.Equal(t, value.EntityType("person"), q.Selector.Type)
}

func TestParseWhereSingleAtom(t *testing.T) {
	q, err := Parse(`from person | where name == "John"`)
	require.NoError(t, err)
	require.Len(t, q.Ops, 1)
	where, ok := q.Ops[0].(*WhereOp)
	require.True(t, ok)
	require.Len(t, where.Condition.Atoms, 1)
	atom := where.Condition.Atoms[0]
	assert.Equal(t, FieldKindPlain, atom.Field.Kind)
	assert.Equal(t, value.FieldId("name"), atom.Field.Name)
	assert.Equal(t, CmpEq, atom.Cmp)
	assert.Equal(t, value.String("John"), atom.Value)
}

func TestParseWhereAndChain(t *testing.T) {
	q, err := Parse(`from task | where priority >= 3 and completed == false`)
	require.NoError(t, err)
	where := q.Ops[0].(*WhereOp)
	assert.Equal(t, LogicalAnd, where.Condition.Op)
	require.Len(t, where.Condition.Atoms, 2)
	assert.Equal(t, CmpGte, where.Condition.Atoms[0].Cmp)
	assert.Equal(t, CmpEq, where.Condition.Atoms[1].Cmp)
}

func TestParseWhereRejectsMixedAndOr(t *testing.T) {
	_, err := Parse(`from task | where a == 1 and b == 2 or c == 3`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mix")
}

func TestParseAtFields(t *testing.T) {
	q, err := Parse(`from * | where @id == "p1" and @type == "person"`)
	require.NoError(t, err)
	where := q.Ops[0].(*WhereOp)
	assert.Equal(t, FieldKindId, where.Condition.Atoms[0].Field.Kind)
	assert.Equal(t, FieldKindType, where.Condition.Atoms[1].Field.Kind)
}

func TestParseRelatedDefaults(t *testing.T) {
	q, err := Parse(`from person | related`)
	require.NoError(t, err)
	related := q.Ops[0].(*RelatedOp)
	assert.Equal(t, 1, related.K)
	assert.Nil(t, related.Type)
}

func TestParseRelatedWithHopsAndType(t *testing.T) {
	q, err := Parse(`from organization | related(2) person`)
	require.NoError(t, err)
	related := q.Ops[0].(*RelatedOp)
	assert.Equal(t, 2, related.K)
	require.NotNil(t, related.Type)
	assert.Equal(t, value.EntityType("person"), *related.Type)
}

func TestParseOrderAscDesc(t *testing.T) {
	q, err := Parse(`from task | order priority desc`)
	require.NoError(t, err)
	order := q.Ops[0].(*OrderOp)
	assert.True(t, order.Desc)
	assert.Equal(t, value.FieldId("priority"), order.Field.Name)

	q, err = Parse(`from task | order priority`)
	require.NoError(t, err)
	order = q.Ops[0].(*OrderOp)
	assert.False(t, order.Desc)
}

func TestParseLimit(t *testing.T) {
	q, err := Parse(`from task | limit 5`)
	require.NoError(t, err)
	limit := q.Ops[0].(*LimitOp)
	assert.Equal(t, 5, limit.N)
}

func TestParseSelectAggregation(t *testing.T) {
	q, err := Parse(`from person | select name, @id`)
	require.NoError(t, err)
	agg, ok := q.Aggregation.(SelectAgg)
	require.True(t, ok)
	require.Len(t, agg.Fields, 2)
	assert.Equal(t, value.FieldId("name"), agg.Fields[0].Name)
	assert.Equal(t, FieldKindId, agg.Fields[1].Kind)
}

func TestParseCountWithAndWithoutField(t *testing.T) {
	q, err := Parse(`from person | count`)
	require.NoError(t, err)
	agg := q.Aggregation.(CountAgg)
	assert.Nil(t, agg.Field)

	q, err = Parse(`from person | count email`)
	require.NoError(t, err)
	agg = q.Aggregation.(CountAgg)
	require.NotNil(t, agg.Field)
	assert.Equal(t, value.FieldId("email"), agg.Field.Name)
}

func TestParseSumAverageMedian(t *testing.T) {
	q, err := Parse(`from task | sum cost`)
	require.NoError(t, err)
	sum := q.Aggregation.(SumAgg)
	assert.Equal(t, value.FieldId("cost"), sum.Field.Name)

	q, err = Parse(`from task | average cost`)
	require.NoError(t, err)
	_ = q.Aggregation.(AverageAgg)

	q, err = Parse(`from task | median cost`)
	require.NoError(t, err)
	_ = q.Aggregation.(MedianAgg)
}

func TestParseFullPipeline(t *testing.T) {
	q, err := Parse(`from organization | where @id == "o1" | related(2) person | order name asc | limit 10`)
	require.NoError(t, err)
	require.Len(t, q.Ops, 4)
	_, ok := q.Ops[0].(*WhereOp)
	assert.True(t, ok)
	_, ok = q.Ops[1].(*RelatedOp)
	assert.True(t, ok)
	_, ok = q.Ops[2].(*OrderOp)
	assert.True(t, ok)
	_, ok = q.Ops[3].(*LimitOp)
	assert.True(t, ok)
}

func TestParseContainsStartsEndsWithIn(t *testing.T) {
	q, err := Parse(`from person | where name contains "oh"`)
	require.NoError(t, err)
	assert.Equal(t, CmpContains, q.Ops[0].(*WhereOp).Condition.Atoms[0].Cmp)

	q, err = Parse(`from person | where name startswith "Jo"`)
	require.NoError(t, err)
	assert.Equal(t, CmpStartsWith, q.Ops[0].(*WhereOp).Condition.Atoms[0].Cmp)

	q, err = Parse(`from person | where name endswith "hn"`)
	require.NoError(t, err)
	assert.Equal(t, CmpEndsWith, q.Ops[0].(*WhereOp).Condition.Atoms[0].Cmp)

	q, err = Parse(`from person | where status in ["active", "pending"]`)
	require.NoError(t, err)
	atom := q.Ops[0].(*WhereOp).Condition.Atoms[0]
	assert.Equal(t, CmpIn, atom.Cmp)
	_, ok := atom.Value.(value.List)
	assert.True(t, ok)
}

func TestParseInRequiresListLiteral(t *testing.T) {
	_, err := Parse(`from person | where status in "active"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in")
}

func TestParseUnknownPipelineStageErrors(t *testing.T) {
	_, err := Parse(`from person | bogus`)
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Contains(t, pe.Message, "unknown pipeline stage")
}

func TestParseUnknownSelectorErrors(t *testing.T) {
	_, err := Parse(`from 123`)
	require.Error(t, err)
}

func TestParseMalformedLiteralErrors(t *testing.T) {
	_, err := Parse(`from person | where name == }`)
	require.Error(t, err)
}

func TestParseAggregationMustBeFinalStage(t *testing.T) {
	_, err := Parse(`from person | count | limit 5`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "final pipeline stage")
}

func TestParseTrailingGarbageErrors(t *testing.T) {
	_, err := Parse(`from person extra`)
	require.Error(t, err)
}
