package graph

import (
	"testing"

	"github.com/42futures/firm/pkg/schema"
	"github.com/42futures/firm/pkg/value"
	"github.com/42futures/firm/pkg/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrom(t *testing.T, reg *schema.Registry, src string) (*Graph, error) {
	t.Helper()
	result, errs := workspace.LoadSource("test.firm", src)
	require.False(t, errs.HasErrors(), errs.Error())

	g := New(reg)
	require.NoError(t, g.AddEntities(result))
	return g, g.Build()
}

func fullId(t, id string) value.FullId {
	entityType, _ := value.NewEntityType(t)
	entityId, _ := value.NewEntityId(id)
	return value.FullId{Type: entityType, ID: entityId}
}

func TestBuildResolvesReferenceAndNeighborsBothDirections(t *testing.T) {
	src := `
person john {
	name = "John"
}
contact c1 {
	person_ref = person.john
}
`
	g, err := buildFrom(t, nil, src)
	require.NoError(t, err)
	assert.True(t, g.Frozen())

	both := g.Neighbors(fullId("contact", "c1"), DirectionBoth)
	require.Len(t, both, 1)
	assert.Equal(t, fullId("person", "john"), both[0].Full)

	to := g.Neighbors(fullId("person", "john"), DirectionTo)
	require.Len(t, to, 1)
	assert.Equal(t, fullId("contact", "c1"), to[0].Full)
}

func TestBuildFailsOnDanglingReference(t *testing.T) {
	src := `
task t1 {
	assignee_ref = person.ghost
}
`
	g, err := buildFrom(t, nil, src)
	require.Error(t, err)
	assert.False(t, g.Frozen())

	danglingErr, ok := err.(*DanglingReferenceError)
	require.True(t, ok, "expected *DanglingReferenceError, got %T", err)
	assert.Equal(t, fullId("task", "t1"), danglingErr.Src)
	assert.Equal(t, value.FieldId("assignee_ref"), danglingErr.Via)
	assert.Equal(t, fullId("person", "ghost"), danglingErr.Dst)
}

func TestBuildFailsOnMissingRequiredField(t *testing.T) {
	reg, errs := schema.BuildRegistry(mustParseSchemas(t, `
schema task {
	field { name = "name" type = "string" required = true order = 0 }
}
`))
	require.Empty(t, errs)

	src := `
task t1 {
	completed = false
}
`
	_, err := buildFrom(t, reg, src)
	require.Error(t, err)
	violation, ok := err.(*SchemaViolationError)
	require.True(t, ok, "expected *SchemaViolationError, got %T", err)
	require.Len(t, violation.Errors, 1)
	assert.Equal(t, "MISSING_REQUIRED_FIELD", violation.Errors[0].Rule)
	assert.Equal(t, "task.t1", violation.Errors[0].Location)
}

func TestBuildCollectsViolationsAcrossAllEntities(t *testing.T) {
	reg, errs := schema.BuildRegistry(mustParseSchemas(t, `
schema task {
	field { name = "name" type = "string" required = true order = 0 }
}
`))
	require.Empty(t, errs)

	src := `
task t1 {
	completed = false
}
task t2 {
	completed = true
}
task t3 {
	name = "has a name"
}
`
	_, err := buildFrom(t, reg, src)
	require.Error(t, err)
	violation, ok := err.(*SchemaViolationError)
	require.True(t, ok, "expected *SchemaViolationError, got %T", err)
	require.Len(t, violation.Errors, 2, "t1 and t2 both violate, t3 does not")

	locations := []string{violation.Errors[0].Location, violation.Errors[1].Location}
	assert.ElementsMatch(t, []string{"task.t1", "task.t2"}, locations)
}

func mustParseSchemas(t *testing.T, src string) []workspace.SourceSchema {
	t.Helper()
	result, errs := workspace.LoadSource("schema.firm", src)
	require.False(t, errs.HasErrors(), errs.Error())
	return result.Schemas
}

func TestAddEntitiesDetectsDuplicateFullId(t *testing.T) {
	result, errs := workspace.LoadSource("test.firm", `
person john { name = "John" }
person john { name = "Duplicate" }
`)
	require.False(t, errs.HasErrors(), errs.Error())

	g := New(nil)
	err := g.AddEntities(result)
	require.Error(t, err)
	dupErr, ok := err.(*DuplicateEntityError)
	require.True(t, ok)
	assert.Equal(t, fullId("person", "john"), dupErr.FullId)
}

func TestBuildTwiceReturnsAlreadyFrozen(t *testing.T) {
	g, err := buildFrom(t, nil, `person john { name = "John" }`)
	require.NoError(t, err)
	err = g.Build()
	require.Error(t, err)
	_, ok := err.(*AlreadyFrozenError)
	assert.True(t, ok)
}

func TestKHopMultiHopTraversalFiltersByType(t *testing.T) {
	src := `
organization o1 {
	name = "Acme"
}
person p1 {
	name = "Pat"
}
contact c1 {
	org_ref = organization.o1
	person_ref = person.p1
}
`
	g, err := buildFrom(t, nil, src)
	require.NoError(t, err)

	personType, _ := value.NewEntityType("person")
	related := g.KHop(fullId("organization", "o1"), 2, &personType)
	require.Len(t, related, 1)
	assert.Equal(t, fullId("person", "p1"), related[0].Full)

	oneHop := g.KHop(fullId("organization", "o1"), 1, &personType)
	assert.Len(t, oneHop, 0, "person is two hops away via contact.c1")
}

func TestKHopMonotoneInK(t *testing.T) {
	src := `
organization o1 { name = "Acme" }
person p1 { name = "Pat" }
contact c1 {
	org_ref = organization.o1
	person_ref = person.p1
}
`
	g, err := buildFrom(t, nil, src)
	require.NoError(t, err)

	k1 := keySet(g.KHop(fullId("organization", "o1"), 1, nil))
	k2 := keySet(g.KHop(fullId("organization", "o1"), 2, nil))
	for key := range k1 {
		assert.Contains(t, k2, key)
	}
}

func keySet(entities []*Entity) map[string]bool {
	out := make(map[string]bool, len(entities))
	for _, e := range entities {
		out[e.Full.String()] = true
	}
	return out
}

func TestListByTypeReturnsInsertionOrder(t *testing.T) {
	src := `
task t1 { name = "First" }
task t2 { name = "Second" }
task t3 { name = "Third" }
`
	g, err := buildFrom(t, nil, src)
	require.NoError(t, err)

	taskType, _ := value.NewEntityType("task")
	tasks := g.ListByType(taskType)
	require.Len(t, tasks, 3)
	assert.Equal(t, fullId("task", "t1"), tasks[0].Full)
	assert.Equal(t, fullId("task", "t2"), tasks[1].Full)
	assert.Equal(t, fullId("task", "t3"), tasks[2].Full)
}
