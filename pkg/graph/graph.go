package graph

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/42futures/firm/pkg/dsl"
	"github.com/42futures/firm/pkg/observability"
	"github.com/42futures/firm/pkg/schema"
	"github.com/42futures/firm/pkg/value"
	"github.com/42futures/firm/pkg/workspace"
)

// Direction selects which adjacency a neighbors() call walks.
type Direction int

const (
	DirectionFrom Direction = iota // edges this entity points out on
	DirectionTo                   // edges pointing into this entity
	DirectionBoth
)

// Graph is the validated, reference-resolved entity graph of spec.md §4.5.
// It is built once via AddEntities + Build and is read-only after that:
// readers take only the shared read lock, so concurrent readers never
// block one another.
type Graph struct {
	mu sync.RWMutex

	schemas *schema.Registry

	entities map[string]*Entity // FullId string -> Entity
	order    []string           // insertion order, for list_by_type determinism
	typeIdx  map[value.EntityType][]string

	forward  map[string][]Edge // src FullId string -> outgoing edges
	backward map[string][]Edge // dst FullId string -> incoming edges

	frozen bool

	// buildID is a fresh UUID stamped once per successful Build, not
	// regenerated on Serialize — it correlates a cache snapshot and its
	// log lines back to the build that produced it.
	buildID string

	log *logrus.Entry

	// pending holds raw parsed entities between AddEntities and Build,
	// since field identifiers and schema validation only run at Build
	// time (same two-phase shape as pkg/dependencies' AddNode-then-query
	// split in the teacher, generalized to an explicit freeze step).
	pending []pendingEntity
}

type pendingEntity struct {
	file   string
	entity *dsl.EntityNode
}

// New creates an empty, unbuilt Graph. schemas may be nil (no schemas
// declared) or a populated *schema.Registry.
func New(schemas *schema.Registry) *Graph {
	if schemas == nil {
		schemas = schema.NewRegistry()
	}
	return &Graph{
		schemas:  schemas,
		entities: make(map[string]*Entity),
		typeIdx:  make(map[value.EntityType][]string),
		forward:  make(map[string][]Edge),
		backward: make(map[string][]Edge),
		log:      observability.Discard(),
	}
}

// SetLogger attaches log for subsequent AddEntities/Build calls. Passing
// nil reverts to a discard logger.
func (g *Graph) SetLogger(log *logrus.Entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.log = observability.OrDiscard(log)
}

// AddEntities consumes a workspace.BuildResult, raising DuplicateEntityError
// on any FullId already queued or present. It does not resolve references
// or validate schemas yet — that happens in Build.
func (g *Graph) AddEntities(result *workspace.BuildResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return &AlreadyFrozenError{Op: "add_entities"}
	}

	seen := make(map[string]bool, len(g.pending))
	for _, p := range g.pending {
		seen[p.entity.FullId()] = true
	}

	for _, src := range result.Entities {
		full := src.Entity.FullId()
		if seen[full] || g.entities[full] != nil {
			entityType, _ := value.NewEntityType(src.Entity.Type)
			entityId, _ := value.NewEntityId(src.Entity.ID)
			return &DuplicateEntityError{FullId: value.FullId{Type: entityType, ID: entityId}}
		}
		seen[full] = true
		g.pending = append(g.pending, pendingEntity{file: src.File, entity: src.Entity})
	}

	g.log.WithField("entities", len(result.Entities)).Debug("queued entities for graph build")
	return nil
}

// Build resolves every field's identifier and reference values into edges,
// validates against any declared schema, and freezes the graph. It is
// all-or-nothing: on any error the graph is left unbuilt (spec.md §4.5
// "construction is all-or-nothing").
func (g *Graph) Build() (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return &AlreadyFrozenError{Op: "build"}
	}

	start := time.Now()
	defer func() {
		if err != nil {
			g.log.WithError(err).Warn("graph build failed")
		}
	}()

	entities := make(map[string]*Entity, len(g.pending))
	order := make([]string, 0, len(g.pending))
	typeIdx := make(map[value.EntityType][]string)
	var violations []*schema.ValidationError

	for _, p := range g.pending {
		entityType, err := value.NewEntityType(p.entity.Type)
		if err != nil {
			return err
		}
		entityId, err := value.NewEntityId(p.entity.ID)
		if err != nil {
			return err
		}
		full := value.FullId{Type: entityType, ID: entityId}

		fields := make(map[value.FieldId]value.FieldValue, len(p.entity.Fields))
		for _, f := range p.entity.Fields {
			fieldId, err := value.NewFieldId(f.Name)
			if err != nil {
				return err
			}
			fields[fieldId] = f.Value
		}

		if s, ok := g.schemas.Get(entityType); ok {
			canonical, result := schema.ValidateEntity(s, full.String(), fields)
			if !result.Valid() {
				violations = append(violations, result.Errors...)
				continue
			}
			fields = canonical
		}

		key := full.String()
		entities[key] = &Entity{Full: full, Fields: fields}
		order = append(order, key)
		typeIdx[entityType] = append(typeIdx[entityType], key)
	}

	if len(violations) > 0 {
		return &SchemaViolationError{Errors: violations}
	}

	forward := make(map[string][]Edge)
	backward := make(map[string][]Edge)

	for _, key := range order {
		e := entities[key]
		fieldNames := sortedFieldIds(e.Fields)
		for _, fieldId := range fieldNames {
			edge, ok := referenceEdge(e.Full, fieldId, e.Fields[fieldId])
			if !ok {
				continue
			}
			if _, exists := entities[edge.Dst.String()]; !exists {
				return &DanglingReferenceError{Src: edge.Src, Via: edge.Via, Dst: edge.Dst}
			}
			forward[edge.Src.String()] = append(forward[edge.Src.String()], edge)
			backward[edge.Dst.String()] = append(backward[edge.Dst.String()], edge)
		}
	}

	g.entities = entities
	g.order = order
	g.typeIdx = typeIdx
	g.forward = forward
	g.backward = backward
	g.frozen = true
	g.pending = nil
	g.buildID = uuid.New().String()

	g.log.WithFields(logrus.Fields{
		"build_id": g.buildID,
		"entities": len(entities),
		"duration": time.Since(start).String(),
	}).Info("graph build completed")
	return nil
}

func sortedFieldIds(fields map[value.FieldId]value.FieldValue) []value.FieldId {
	ids := make([]value.FieldId, 0, len(fields))
	for id := range fields {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// referenceEdge extracts the (src, via, dst, kind) edge a field's value
// denotes, if it's a reference kind. Only a field whose value is itself an
// EntityRef or FieldRef yields an edge; a List value yields none, even
// when its items are references.
func referenceEdge(src value.FullId, via value.FieldId, v value.FieldValue) (Edge, bool) {
	switch rv := v.(type) {
	case value.EntityRef:
		return Edge{Src: src, Dst: rv.Full, Via: via, Kind: EdgeEntityRef}, true
	case value.FieldRef:
		return Edge{Src: src, Dst: rv.Full, Via: via, Kind: EdgeFieldRef}, true
	default:
		return Edge{}, false
	}
}

// Get returns the entity named full_id, or ok=false if absent.
func (g *Graph) Get(full value.FullId) (*Entity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.entities[full.String()]
	return e, ok
}

// ListByType returns every entity of type t, in deterministic insertion
// order (source file path, then in-file position — already the order
// pkg/workspace produced).
func (g *Graph) ListByType(t value.EntityType) []*Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys := g.typeIdx[t]
	out := make([]*Entity, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.entities[k])
	}
	return out
}

// ListAll returns every entity, in insertion order.
func (g *Graph) ListAll() []*Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Entity, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, g.entities[k])
	}
	return out
}

// Neighbors returns the unique entities reachable from full in one hop,
// per direction.
func (g *Graph) Neighbors(full value.FullId, dir Direction) []*Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	var out []*Entity
	add := func(key string) {
		if key == full.String() || seen[key] {
			return
		}
		seen[key] = true
		if e, ok := g.entities[key]; ok {
			out = append(out, e)
		}
	}

	key := full.String()
	if dir == DirectionFrom || dir == DirectionBoth {
		for _, e := range g.forward[key] {
			add(e.Dst.String())
		}
	}
	if dir == DirectionTo || dir == DirectionBoth {
		for _, e := range g.backward[key] {
			add(e.Src.String())
		}
	}
	return out
}

// KHop returns every entity reachable from full within k undirected hops
// (k >= 1), deduplicated, seed excluded, optionally filtered to
// typeFilter. Traversal is BFS.
func (g *Graph) KHop(full value.FullId, k int, typeFilter *value.EntityType) []*Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if k < 1 {
		return nil
	}

	start := full.String()
	visited := map[string]bool{start: true}
	frontier := []string{start}
	var out []*Entity

	for hop := 0; hop < k && len(frontier) > 0; hop++ {
		var next []string
		for _, key := range frontier {
			for _, e := range g.forward[key] {
				next = appendUnvisited(next, visited, e.Dst.String())
			}
			for _, e := range g.backward[key] {
				next = appendUnvisited(next, visited, e.Src.String())
			}
		}
		for _, key := range next {
			visited[key] = true
			e, ok := g.entities[key]
			if !ok {
				continue
			}
			if typeFilter != nil && e.Full.Type != *typeFilter {
				continue
			}
			out = append(out, e)
		}
		frontier = next
	}

	return out
}

func appendUnvisited(next []string, visited map[string]bool, key string) []string {
	if visited[key] {
		return next
	}
	for _, n := range next {
		if n == key {
			return next
		}
	}
	return append(next, key)
}

// Frozen reports whether Build has completed successfully.
func (g *Graph) Frozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frozen
}

// BuildID returns the UUID stamped by the most recent successful Build,
// or "" if the graph has never been built.
func (g *Graph) BuildID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.buildID
}

// Schemas returns the registry the graph validated against.
func (g *Graph) Schemas() *schema.Registry {
	return g.schemas
}
