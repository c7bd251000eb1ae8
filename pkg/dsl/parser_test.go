package dsl

import (
	"testing"

	"github.com/42futures/firm/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleEntity(t *testing.T) {
	f, errs := Parse("", `person john { name = "John" }`)
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, f.Entities, 1)

	e := f.Entities[0]
	assert.Equal(t, "person", e.Type)
	assert.Equal(t, "john", e.ID)
	assert.Equal(t, "person.john", e.FullId())
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "name", e.Fields[0].Name)
	assert.True(t, value.String("John").Equal(e.Fields[0].Value))
}

func TestParseEntityWithReferenceField(t *testing.T) {
	f, errs := Parse("", `contact c1 { person_ref = person.john }`)
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, f.Entities, 1)
	ref, ok := f.Entities[0].Fields[0].Value.(value.EntityRef)
	require.True(t, ok)
	assert.Equal(t, "person.john", ref.String())
}

func TestParseMultipleEntitiesAndComments(t *testing.T) {
	src := `
// a leading comment
person john { name = "John" }

/* block comment */
task t1 {
	name = "write docs"
	completed = false
	priority = 5
}
`
	f, errs := Parse("", src)
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, f.Entities, 2)
	assert.Equal(t, "task", f.Entities[1].Type)
	require.Len(t, f.Entities[1].Fields, 3)
}

func TestParseSchemaBlock(t *testing.T) {
	src := `
schema task {
	field { name = "name" type = "string" required = true }
	field { name = "completed" type = "boolean" required = false }
}
`
	f, errs := Parse("", src)
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, f.Schemas, 1)
	assert.Equal(t, "task", f.Schemas[0].Type)
	require.Len(t, f.Schemas[0].FieldSpecs, 2)
	assert.Equal(t, "name", f.Schemas[0].FieldSpecs[0].Fields[0].Name)
}

func TestParseMissingFieldValueRecoversAtBlockBoundary(t *testing.T) {
	src := `
task bad { name = }
person ok { name = "Ok" }
`
	f, errs := Parse("", src)
	require.True(t, errs.HasErrors())
	require.Len(t, f.Entities, 1)
	assert.Equal(t, "person", f.Entities[0].Type)
}

func TestParseUnterminatedEntityBlockReportsError(t *testing.T) {
	_, errs := Parse("", `task t1 { name = "x"`)
	require.True(t, errs.HasErrors())
}

func TestParseErrorIncludesFileAndPosition(t *testing.T) {
	_, errs := Parse("entities/bad.firm", `123abc`)
	require.True(t, errs.HasErrors())
	assert.Contains(t, errs.Errors[0].Error(), "entities/bad.firm")
}

func TestParseListField(t *testing.T) {
	f, errs := Parse("", `task t1 { tags = ["a", "b", "c"] }`)
	require.False(t, errs.HasErrors(), errs.Error())
	l, ok := f.Entities[0].Fields[0].Value.(value.List)
	require.True(t, ok)
	assert.Len(t, l.Items, 3)
}

func TestParseCurrencyField(t *testing.T) {
	f, errs := Parse("", `invoice i1 { amount = 100.50 USD }`)
	require.False(t, errs.HasErrors(), errs.Error())
	c, ok := f.Entities[0].Fields[0].Value.(value.Currency)
	require.True(t, ok)
	assert.Equal(t, "USD", c.Code)
}
