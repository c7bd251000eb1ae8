package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/42futures/firm/pkg/graph"
	"github.com/42futures/firm/pkg/schema"
	"github.com/42futures/firm/pkg/value"
	"github.com/42futures/firm/pkg/workspace"
)

// loadGraph loads every .firm file under dir, builds the schema registry
// from any schema blocks found, and builds the entity graph from the
// result. Every one-shot firmctl subcommand that reads the graph shares
// this load-then-build path, so nothing is reused between invocations;
// the long-running serve subcommand does its own loading in rebuild.
func loadGraph(dir string) (*graph.Graph, error) {
	result, loadErrs := workspace.LoadDirectory(dir)
	if loadErrs.HasErrors() {
		return nil, fmt.Errorf("loading workspace %s:\n%s", dir, loadErrs.Error())
	}

	reg, schemaErrs := schema.BuildRegistry(result.Schemas)
	if len(schemaErrs) > 0 {
		return nil, fmt.Errorf("building schema registry: %v", schemaErrs[0])
	}

	g := graph.New(reg)
	if err := g.AddEntities(result); err != nil {
		return nil, fmt.Errorf("adding entities: %w", err)
	}
	if err := g.Build(); err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}
	return g, nil
}

// openCacheStore opens the graph.CacheStore named by backend ("file" or
// "s3"), the two snapshot-store backends firmctl can reach directly —
// "postgres" stays reachable only through pkg/graph's integration test,
// per DESIGN.md.
func openCacheStore(ctx context.Context, backend, cacheDir string, s3cfg graph.S3Config) (graph.CacheStore, error) {
	switch backend {
	case "", "file":
		if cacheDir == "" {
			return nil, fmt.Errorf("--cache-dir is required for the file cache backend")
		}
		return graph.NewFileCache(cacheDir)
	case "s3":
		if s3cfg.Bucket == "" {
			return nil, fmt.Errorf("--s3-bucket is required for the s3 cache backend")
		}
		return graph.NewS3Cache(ctx, s3cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend %q, want file|s3", backend)
	}
}

// rebuildSQLiteIndex opens (or creates) the sqlite secondary index at
// path and rebuilds it from g's current entities.
func rebuildSQLiteIndex(ctx context.Context, path string, g *graph.Graph) error {
	idx, err := graph.NewSQLiteIndex(path)
	if err != nil {
		return fmt.Errorf("opening sqlite index %s: %w", path, err)
	}
	defer idx.Close()
	return idx.Rebuild(ctx, g)
}

// parseFullId parses "type.id" into a value.FullId.
func parseFullId(s string) (value.FullId, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			t, err := value.NewEntityType(s[:i])
			if err != nil {
				return value.FullId{}, err
			}
			id, err := value.NewEntityId(s[i+1:])
			if err != nil {
				return value.FullId{}, err
			}
			return value.FullId{Type: t, ID: id}, nil
		}
	}
	return value.FullId{}, fmt.Errorf("malformed entity id %q, expected type.id", s)
}

// sortedFieldIds returns e's field ids in canonical (sorted) order, for
// deterministic CLI output.
func sortedFieldIds(e *graph.Entity) []value.FieldId {
	ids := make([]value.FieldId, 0, len(e.Fields))
	for id := range e.Fields {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
