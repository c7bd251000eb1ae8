package schema

import (
	"fmt"
	"strings"

	"github.com/42futures/firm/pkg/value"
)

// Severity mirrors the teacher's validation.Severity — every SchemaViolation
// this package raises is an error; the level exists so a future relaxed
// mode (warnings for soft conventions) has somewhere to go without a
// breaking change.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityError {
		return "ERROR"
	}
	return "WARNING"
}

// ValidationError is one SchemaViolation: a missing required field, a
// declared-type mismatch, or an enum value outside allowed_values.
type ValidationError struct {
	Location string // FullId the violation belongs to, e.g. "task.t1"
	Field    string
	Rule     string
	Message  string
	Severity Severity
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// ValidationResult collects every violation found validating one entity.
type ValidationResult struct {
	Errors []*ValidationError
}

func (r *ValidationResult) addError(location, field, rule, message string) {
	r.Errors = append(r.Errors, &ValidationError{
		Location: location, Field: field, Rule: rule, Message: message, Severity: SeverityError,
	})
}

func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// ValidateEntity checks fields against schema, per spec.md §4.4: every
// required field present, every typed field's stored kind matching the
// schema, and every Enum field's value present in allowed_values
// (case-insensitive), returning the canonical-cased value to store.
//
// Canonicalization: on an Enum match, the returned map has that field's
// value rewritten to the schema's own casing — callers (pkg/graph) should
// store the returned map, not the original, so "canonical on store" holds
// per spec.md §4.4.
func ValidateEntity(schema *Schema, fullId string, fields map[value.FieldId]value.FieldValue) (map[value.FieldId]value.FieldValue, *ValidationResult) {
	result := &ValidationResult{}
	out := make(map[value.FieldId]value.FieldValue, len(fields))
	for k, v := range fields {
		out[k] = v
	}

	for _, spec := range schema.Fields {
		fv, present := fields[spec.FieldId]
		if !present {
			if spec.Required {
				result.addError(fullId, string(spec.FieldId), "MISSING_REQUIRED_FIELD",
					fmt.Sprintf("missing required field %q", spec.FieldId))
			}
			continue
		}

		if spec.DeclaredType == value.KindEnum {
			enumVal, ok := fv.(value.Enum)
			if !ok {
				result.addError(fullId, string(spec.FieldId), "TYPE_MISMATCH",
					fmt.Sprintf("field %q declared enum, stored kind is %s", spec.FieldId, fv.Kind()))
				continue
			}
			canonical, ok := matchAllowedValue(string(enumVal), spec.AllowedValues)
			if !ok {
				result.addError(fullId, string(spec.FieldId), "ENUM_VALUE_NOT_ALLOWED",
					fmt.Sprintf("field %q value %q not in allowed_values %v", spec.FieldId, enumVal, spec.AllowedValues))
				continue
			}
			out[spec.FieldId] = value.Enum(canonical)
			continue
		}

		if fv.Kind() != spec.DeclaredType {
			result.addError(fullId, string(spec.FieldId), "TYPE_MISMATCH",
				fmt.Sprintf("field %q declared %s, stored kind is %s", spec.FieldId, spec.DeclaredType, fv.Kind()))
		}
	}

	return out, result
}

func matchAllowedValue(got string, allowed []string) (string, bool) {
	for _, a := range allowed {
		if strings.EqualFold(a, got) {
			return a, true
		}
	}
	return "", false
}
