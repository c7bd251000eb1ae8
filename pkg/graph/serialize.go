package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/42futures/firm/pkg/schema"
	"github.com/42futures/firm/pkg/value"
)

// formatVersion is the cache file's major version. Deserialize refuses any
// snapshot whose FormatVersion differs (spec.md §7 CacheFormatError).
const formatVersion = 1

// snapshot is the on-disk shape written by Serialize and read by
// Deserialize. Fields are ordered so the JSON encoding is stable across
// runs: entities are emitted in build-insertion order and each entity's
// fields sorted by field id, never map iteration order (spec.md §8
// "serialize ∘ deserialize is an identity").
type snapshot struct {
	FormatVersion int              `json:"format_version"`
	BuildID       string           `json:"build_id,omitempty"`
	Schemas       []snapshotSchema `json:"schemas"`
	Entities      []snapshotEntity `json:"entities"`
	Edges         []snapshotEdge   `json:"edges"`
}

type snapshotSchema struct {
	EntityType string               `json:"entity_type"`
	Fields     []snapshotFieldSpec  `json:"fields"`
}

type snapshotFieldSpec struct {
	FieldId       string   `json:"field_id"`
	DeclaredType  string   `json:"declared_type"`
	Required      bool     `json:"required"`
	AllowedValues []string `json:"allowed_values,omitempty"`
	Order         int      `json:"order"`
}

type snapshotEntity struct {
	Type   string           `json:"type"`
	ID     string           `json:"id"`
	Fields []snapshotField  `json:"fields"`
}

type snapshotField struct {
	Name  string          `json:"name"`
	Kind  string          `json:"value_kind"`
	Value json.RawMessage `json:"value"`
}

type snapshotEdge struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Via  string `json:"via"`
	Kind string `json:"kind"`
}

// Serialize renders the frozen graph to its canonical JSON snapshot form.
// Build must have completed successfully first.
func (g *Graph) Serialize() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.frozen {
		return nil, &NotFrozenError{Op: "serialize"}
	}

	snap := snapshot{FormatVersion: formatVersion, BuildID: g.buildID}

	for _, t := range sortedEntityTypes(g.schemas.Types()) {
		s, _ := g.schemas.Get(t)
		fields := make([]snapshotFieldSpec, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = snapshotFieldSpec{
				FieldId:       string(f.FieldId),
				DeclaredType:  f.DeclaredType.String(),
				Required:      f.Required,
				AllowedValues: f.AllowedValues,
				Order:         f.Order,
			}
		}
		snap.Schemas = append(snap.Schemas, snapshotSchema{EntityType: string(t), Fields: fields})
	}

	for _, key := range g.order {
		e := g.entities[key]
		fieldNames := sortedFieldIds(e.Fields)
		fields := make([]snapshotField, 0, len(fieldNames))
		for _, fieldId := range fieldNames {
			raw, err := encodeValue(e.Fields[fieldId])
			if err != nil {
				return nil, err
			}
			fields = append(fields, snapshotField{
				Name:  string(fieldId),
				Kind:  e.Fields[fieldId].Kind().String(),
				Value: raw,
			})
		}
		snap.Entities = append(snap.Entities, snapshotEntity{
			Type:   string(e.Full.Type),
			ID:     string(e.Full.ID),
			Fields: fields,
		})
	}

	for _, key := range g.order {
		for _, e := range g.forward[key] {
			snap.Edges = append(snap.Edges, snapshotEdge{
				Src:  e.Src.String(),
				Dst:  e.Dst.String(),
				Via:  string(e.Via),
				Kind: e.Kind.String(),
			})
		}
	}

	return json.MarshalIndent(snap, "", "  ")
}

func sortedEntityTypes(types []value.EntityType) []value.EntityType {
	out := append([]value.EntityType(nil), types...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Deserialize reconstructs a frozen Graph from a snapshot previously
// produced by Serialize. It does not re-validate schemas or re-resolve
// references: the snapshot is trusted to have come from a successful
// Build (spec.md §4.5 "load path reconstructs adjacency without
// re-resolving references").
func Deserialize(data []byte) (*Graph, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &CacheFormatError{Reason: err.Error()}
	}
	if snap.FormatVersion != formatVersion {
		return nil, &CacheFormatError{Reason: fmt.Sprintf("unsupported format_version %d", snap.FormatVersion)}
	}

	g := New(nil)
	entities := make(map[string]*Entity, len(snap.Entities))
	order := make([]string, 0, len(snap.Entities))
	typeIdx := make(map[value.EntityType][]string)

	for _, se := range snap.Entities {
		entityType, err := value.NewEntityType(se.Type)
		if err != nil {
			return nil, &CacheFormatError{Reason: err.Error()}
		}
		entityId, err := value.NewEntityId(se.ID)
		if err != nil {
			return nil, &CacheFormatError{Reason: err.Error()}
		}
		full := value.FullId{Type: entityType, ID: entityId}

		fields := make(map[value.FieldId]value.FieldValue, len(se.Fields))
		for _, sf := range se.Fields {
			fieldId, err := value.NewFieldId(sf.Name)
			if err != nil {
				return nil, &CacheFormatError{Reason: err.Error()}
			}
			v, err := decodeValue(sf.Kind, sf.Value)
			if err != nil {
				return nil, &CacheFormatError{Reason: err.Error()}
			}
			fields[fieldId] = v
		}

		key := full.String()
		entities[key] = &Entity{Full: full, Fields: fields}
		order = append(order, key)
		typeIdx[entityType] = append(typeIdx[entityType], key)
	}

	forward := make(map[string][]Edge)
	backward := make(map[string][]Edge)
	for _, se := range snap.Edges {
		srcType, srcId, err := splitFullId(se.Src)
		if err != nil {
			return nil, &CacheFormatError{Reason: err.Error()}
		}
		dstType, dstId, err := splitFullId(se.Dst)
		if err != nil {
			return nil, &CacheFormatError{Reason: err.Error()}
		}
		via, err := value.NewFieldId(se.Via)
		if err != nil {
			return nil, &CacheFormatError{Reason: err.Error()}
		}
		kind := EdgeEntityRef
		if se.Kind == EdgeFieldRef.String() {
			kind = EdgeFieldRef
		}
		edge := Edge{
			Src:  value.FullId{Type: srcType, ID: srcId},
			Dst:  value.FullId{Type: dstType, ID: dstId},
			Via:  via,
			Kind: kind,
		}
		forward[edge.Src.String()] = append(forward[edge.Src.String()], edge)
		backward[edge.Dst.String()] = append(backward[edge.Dst.String()], edge)
	}

	reg, errs := buildRegistryFromSnapshot(snap.Schemas)
	if len(errs) > 0 {
		return nil, &CacheFormatError{Reason: errs[0].Error()}
	}

	g.schemas = reg
	g.entities = entities
	g.order = order
	g.typeIdx = typeIdx
	g.forward = forward
	g.backward = backward
	g.frozen = true
	g.buildID = snap.BuildID
	return g, nil
}

func splitFullId(s string) (value.EntityType, value.EntityId, error) {
	for i := range s {
		if s[i] == '.' {
			t, err := value.NewEntityType(s[:i])
			if err != nil {
				return "", "", err
			}
			id, err := value.NewEntityId(s[i+1:])
			if err != nil {
				return "", "", err
			}
			return t, id, nil
		}
	}
	return "", "", fmt.Errorf("malformed full id %q", s)
}

// EncodeFieldValue renders one FieldValue as tagged JSON, the same format
// Serialize uses for entity fields. Exported so other packages (pkg/query's
// result cache) can persist a FieldValue without duplicating this format.
func EncodeFieldValue(v value.FieldValue) (json.RawMessage, error) {
	return encodeValue(v)
}

// DecodeFieldValue reverses EncodeFieldValue given the Kind.String() label
// it was encoded under.
func DecodeFieldValue(kind string, raw json.RawMessage) (value.FieldValue, error) {
	return decodeValue(kind, raw)
}

// encodeValue renders one FieldValue as tagged JSON. An EntityRef encodes
// to its "type.id" string form, a FieldRef to a {full, field} object;
// List recurses per item.
func encodeValue(v value.FieldValue) (json.RawMessage, error) {
	switch tv := v.(type) {
	case value.String:
		return json.Marshal(string(tv))
	case value.Integer:
		return json.Marshal(int64(tv))
	case value.Float:
		return json.Marshal(float64(tv))
	case value.Boolean:
		return json.Marshal(bool(tv))
	case value.Path:
		return json.Marshal(string(tv))
	case value.Enum:
		return json.Marshal(string(tv))
	case value.Currency:
		return json.Marshal(map[string]string{"amount": tv.Amount.String(), "code": tv.Code})
	case value.DateTime:
		return json.Marshal(map[string]interface{}{
			"instant":   tv.Instant.Format("2006-01-02T15:04:05Z"),
			"precision": tv.Precision.String(),
			"offset":    tv.Offset.Kind == value.OffsetFixedUTC,
			"offset_hours": tv.Offset.Hours,
		})
	case value.EntityRef:
		return json.Marshal(tv.Full.String())
	case value.FieldRef:
		return json.Marshal(map[string]string{"full": tv.Full.String(), "field": string(tv.Field)})
	case value.List:
		items := make([]json.RawMessage, len(tv.Items))
		for i, item := range tv.Items {
			raw, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = raw
		}
		return json.Marshal(map[string]interface{}{
			"item_kind": tv.ItemKind.String(),
			"items":     items,
		})
	default:
		return nil, fmt.Errorf("encodeValue: unhandled kind %T", v)
	}
}

func decodeValue(kind string, raw json.RawMessage) (value.FieldValue, error) {
	switch kind {
	case "string":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return value.String(s), nil
	case "integer":
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return value.Integer(n), nil
	case "float":
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		return value.Float(f), nil
	case "boolean":
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return value.Boolean(b), nil
	case "path":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return value.Path(s), nil
	case "enum":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return value.Enum(s), nil
	case "currency":
		var m struct {
			Amount string `json:"amount"`
			Code   string `json:"code"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return value.NewCurrency(m.Amount, m.Code)
	case "datetime":
		var m struct {
			Instant     string `json:"instant"`
			Precision   string `json:"precision"`
			Offset      bool   `json:"offset"`
			OffsetHours int    `json:"offset_hours"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return decodeDateTime(m.Instant, m.Precision, m.Offset, m.OffsetHours)
	case "entity-ref":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		t, id, err := splitFullId(s)
		if err != nil {
			return nil, err
		}
		return value.EntityRef{Full: value.FullId{Type: t, ID: id}}, nil
	case "field-ref":
		var m struct {
			Full  string `json:"full"`
			Field string `json:"field"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		t, id, err := splitFullId(m.Full)
		if err != nil {
			return nil, err
		}
		fieldId, err := value.NewFieldId(m.Field)
		if err != nil {
			return nil, err
		}
		return value.FieldRef{Full: value.FullId{Type: t, ID: id}, Field: fieldId}, nil
	case "list":
		var m struct {
			ItemKind string            `json:"item_kind"`
			Items    []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		itemKind, err := kindFromItemEnvelope(m.ItemKind)
		if err != nil {
			return nil, err
		}
		items := make([]value.FieldValue, len(m.Items))
		for i, raw := range m.Items {
			v, err := decodeValue(itemKind, raw)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		built, err := value.NewList(items)
		if err != nil {
			return nil, err
		}
		return built, nil
	default:
		return nil, fmt.Errorf("decodeValue: unhandled kind %q", kind)
	}
}

// kindFromItemEnvelope maps a Kind.String() label back to the tag used by
// encodeValue/decodeValue for that kind.
func kindFromItemEnvelope(label string) (string, error) {
	switch label {
	case "string":
		return "string", nil
	case "integer":
		return "integer", nil
	case "float":
		return "float", nil
	case "boolean":
		return "boolean", nil
	case "path":
		return "path", nil
	case "enum":
		return "enum", nil
	case "currency":
		return "currency", nil
	case "datetime":
		return "datetime", nil
	case "entity-ref":
		return "entity-ref", nil
	case "field-ref":
		return "field-ref", nil
	default:
		return "", fmt.Errorf("unknown list item kind %q", label)
	}
}

func decodeDateTime(instant, precision string, fixedUTC bool, offsetHours int) (value.DateTime, error) {
	t, err := parseInstant(instant)
	if err != nil {
		return value.DateTime{}, err
	}
	p := value.PrecisionDate
	if precision == value.PrecisionDateMinute.String() {
		p = value.PrecisionDateMinute
	}
	offset := value.Offset{Kind: value.OffsetLocal}
	if fixedUTC {
		offset = value.Offset{Kind: value.OffsetFixedUTC, Hours: offsetHours}
	}
	return value.DateTime{Instant: t, Precision: p, Offset: offset}, nil
}

func parseInstant(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05Z", s)
}

// buildRegistryFromSnapshot reconstructs a *schema.Registry from the
// schemas a snapshot recorded, without re-parsing any DSL source.
func buildRegistryFromSnapshot(schemas []snapshotSchema) (*schema.Registry, []error) {
	reg := schema.NewRegistry()
	var errs []error

	for _, ss := range schemas {
		entityType, err := value.NewEntityType(ss.EntityType)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		fields := make([]schema.FieldSpec, 0, len(ss.Fields))
		for _, sf := range ss.Fields {
			fieldId, err := value.NewFieldId(sf.FieldId)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			kind, err := kindFromLabel(sf.DeclaredType)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			fields = append(fields, schema.FieldSpec{
				FieldId:       fieldId,
				DeclaredType:  kind,
				Required:      sf.Required,
				AllowedValues: sf.AllowedValues,
				Order:         sf.Order,
			})
		}

		reg.Put(&schema.Schema{EntityType: entityType, Fields: fields})
	}

	return reg, errs
}

func kindFromLabel(label string) (value.Kind, error) {
	switch label {
	case "string":
		return value.KindString, nil
	case "integer":
		return value.KindInteger, nil
	case "float":
		return value.KindFloat, nil
	case "boolean":
		return value.KindBoolean, nil
	case "currency":
		return value.KindCurrency, nil
	case "datetime":
		return value.KindDateTime, nil
	case "entity-ref":
		return value.KindEntityRef, nil
	case "field-ref":
		return value.KindFieldRef, nil
	case "path":
		return value.KindPath, nil
	case "enum":
		return value.KindEnum, nil
	case "list":
		return value.KindList, nil
	default:
		return 0, fmt.Errorf("unknown declared type label %q", label)
	}
}
