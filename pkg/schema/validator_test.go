package schema

import (
	"testing"

	"github.com/42futures/firm/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskSchema() *Schema {
	return &Schema{
		EntityType: "task",
		Fields: []FieldSpec{
			{FieldId: "name", DeclaredType: value.KindString, Required: true},
			{FieldId: "status", DeclaredType: value.KindEnum, Required: false, AllowedValues: []string{"Open", "Closed"}},
		},
	}
}

func TestValidateEntityMissingRequiredField(t *testing.T) {
	_, result := ValidateEntity(taskSchema(), "task.t1", map[value.FieldId]value.FieldValue{
		"completed": value.Boolean(false),
	})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "MISSING_REQUIRED_FIELD", result.Errors[0].Rule)
	assert.Equal(t, "name", result.Errors[0].Field)
}

func TestValidateEntityTypeMismatch(t *testing.T) {
	_, result := ValidateEntity(taskSchema(), "task.t1", map[value.FieldId]value.FieldValue{
		"name": value.Integer(5),
	})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "TYPE_MISMATCH", result.Errors[0].Rule)
}

func TestValidateEntityEnumCaseInsensitiveCanonicalStored(t *testing.T) {
	out, result := ValidateEntity(taskSchema(), "task.t1", map[value.FieldId]value.FieldValue{
		"name":   value.String("write docs"),
		"status": value.Enum("open"),
	})
	assert.True(t, result.Valid())
	assert.Equal(t, value.Enum("Open"), out["status"])
}

func TestValidateEntityEnumValueNotAllowed(t *testing.T) {
	_, result := ValidateEntity(taskSchema(), "task.t1", map[value.FieldId]value.FieldValue{
		"name":   value.String("write docs"),
		"status": value.Enum("Archived"),
	})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "ENUM_VALUE_NOT_ALLOWED", result.Errors[0].Rule)
}

func TestValidateEntityNoSchemaFieldsIsValid(t *testing.T) {
	_, result := ValidateEntity(&Schema{EntityType: "note"}, "note.n1", map[value.FieldId]value.FieldValue{
		"body": value.String("hello"),
	})
	assert.True(t, result.Valid())
}
