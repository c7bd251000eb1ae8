// Package schema holds the registry of declared entity schemas and the
// validator that checks built entities against them (spec.md §4.4).
// Schemas are optional per entity type: a type with no schema is accepted
// as-is.
package schema

import (
	"fmt"
	"sort"

	"github.com/42futures/firm/pkg/dsl"
	"github.com/42futures/firm/pkg/value"
	"github.com/42futures/firm/pkg/workspace"
)

// kindNames maps the declared_type strings a schema's field spec writes
// (e.g. `type = "string"`) onto the closed Kind enum.
var kindNames = map[string]value.Kind{
	"string":     value.KindString,
	"integer":    value.KindInteger,
	"float":      value.KindFloat,
	"boolean":    value.KindBoolean,
	"currency":   value.KindCurrency,
	"datetime":   value.KindDateTime,
	"entity-ref": value.KindEntityRef,
	"field-ref":  value.KindFieldRef,
	"path":       value.KindPath,
	"enum":       value.KindEnum,
	"list":       value.KindList,
}

// FieldSpec is one declared field of a Schema: its id, required kind,
// whether it must be present, and (for Enum fields) the allowed values in
// their canonical casing.
type FieldSpec struct {
	FieldId       value.FieldId
	DeclaredType  value.Kind
	Required      bool
	AllowedValues []string
	Order         int
}

// Schema is the declarative structure for one entity type: its ordered
// field specs, per spec.md §4 Data Model.
type Schema struct {
	EntityType value.EntityType
	Fields     []FieldSpec
}

// FieldSpec looks up a field's spec by id, or reports not-found.
func (s *Schema) FieldSpec(id value.FieldId) (FieldSpec, bool) {
	for _, fs := range s.Fields {
		if fs.FieldId == id {
			return fs, true
		}
	}
	return FieldSpec{}, false
}

// Registry holds every declared Schema, keyed by EntityType.
type Registry struct {
	schemas map[value.EntityType]*Schema
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[value.EntityType]*Schema)}
}

// Get returns the Schema declared for t, if any.
func (r *Registry) Get(t value.EntityType) (*Schema, bool) {
	s, ok := r.schemas[t]
	return s, ok
}

// Types returns every EntityType with a declared schema, in no particular
// order.
func (r *Registry) Types() []value.EntityType {
	out := make([]value.EntityType, 0, len(r.schemas))
	for t := range r.schemas {
		out = append(out, t)
	}
	return out
}

// Put registers s directly, overwriting any existing schema for its type.
// Used when reconstructing a Registry from a cache snapshot rather than
// from parsed DSL source.
func (r *Registry) Put(s *Schema) {
	r.schemas[s.EntityType] = s
}

// BuildRegistry converts the schema blocks a workspace load collected into
// a Registry, validating each field spec's own shape (name/type/required/
// order/allowed_values keys; "name" and a known type are required, and an
// enum type requires allowed_values).
func BuildRegistry(sources []workspace.SourceSchema) (*Registry, []error) {
	reg := NewRegistry()
	var errs []error

	for _, src := range sources {
		entityType, err := value.NewEntityType(src.Schema.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: schema type %q: %w", src.File, src.Schema.Type, err))
			continue
		}

		schema := &Schema{EntityType: entityType}
		for _, block := range src.Schema.FieldSpecs {
			fs, err := buildFieldSpec(block)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: schema %s: %w", src.File, src.Schema.Type, err))
				continue
			}
			schema.Fields = append(schema.Fields, fs)
		}
		sort.SliceStable(schema.Fields, func(i, j int) bool {
			return schema.Fields[i].Order < schema.Fields[j].Order
		})

		reg.schemas[entityType] = schema
	}

	return reg, errs
}

func buildFieldSpec(block *dsl.FieldSpecBlockNode) (FieldSpec, error) {
	var (
		fieldName     string
		declaredType  string
		required      bool
		allowedValues []string
		order         int
	)

	for _, f := range block.Fields {
		switch f.Name {
		case "name":
			s, ok := f.Value.(value.String)
			if !ok {
				return FieldSpec{}, fmt.Errorf("field spec %q: expected a string", f.Name)
			}
			fieldName = string(s)
		case "type":
			s, ok := f.Value.(value.String)
			if !ok {
				return FieldSpec{}, fmt.Errorf("field spec type: expected a string")
			}
			declaredType = string(s)
		case "required":
			b, ok := f.Value.(value.Boolean)
			if !ok {
				return FieldSpec{}, fmt.Errorf("field spec required: expected a boolean")
			}
			required = bool(b)
		case "order":
			n, ok := f.Value.(value.Integer)
			if !ok {
				return FieldSpec{}, fmt.Errorf("field spec order: expected an integer")
			}
			order = int(n)
		case "allowed_values":
			l, ok := f.Value.(value.List)
			if !ok {
				return FieldSpec{}, fmt.Errorf("field spec allowed_values: expected a list")
			}
			for _, item := range l.Items {
				s, ok := item.(value.String)
				if !ok {
					return FieldSpec{}, fmt.Errorf("field spec allowed_values: expected a list of strings")
				}
				allowedValues = append(allowedValues, string(s))
			}
		}
	}

	if fieldName == "" {
		return FieldSpec{}, fmt.Errorf("field spec missing required \"name\" key")
	}
	fieldId, err := value.NewFieldId(fieldName)
	if err != nil {
		return FieldSpec{}, err
	}
	kind, ok := kindNames[declaredType]
	if !ok {
		return FieldSpec{}, fmt.Errorf("field %q: unknown declared type %q", fieldName, declaredType)
	}
	if kind == value.KindEnum && len(allowedValues) == 0 {
		return FieldSpec{}, fmt.Errorf("field %q: declared_type enum requires allowed_values", fieldName)
	}

	return FieldSpec{
		FieldId:       fieldId,
		DeclaredType:  kind,
		Required:      required,
		AllowedValues: allowedValues,
		Order:         order,
	}, nil
}
