// Package workspace discovers .firm source files on disk (or accepts an
// in-memory blob for tests), parses each through pkg/dsl, and merges the
// results into one BuildResult per spec.md §4.3.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/42futures/firm/pkg/dsl"
	"github.com/42futures/firm/pkg/lex"
	"github.com/42futures/firm/pkg/observability"
	"github.com/42futures/firm/pkg/value"
)

// log is package-level since LoadDirectory/LoadFile/LoadSource are free
// functions with no receiver to carry a logger field. SetLogger swaps it
// for every subsequent call in the process.
var log = observability.Discard()

// SetLogger attaches log for subsequent LoadDirectory/LoadFile/LoadSource
// calls. Passing nil reverts to a discard logger.
func SetLogger(l *logrus.Entry) {
	log = observability.OrDiscard(l)
}

func normalizeSource(src string) string {
	return lex.Normalize([]byte(src))
}

// SourceEntity pairs a parsed entity with the file it came from, so
// duplicate-detection errors can name both sources.
type SourceEntity struct {
	File   string
	Entity *dsl.EntityNode
}

// SourceSchema pairs a parsed schema with its originating file.
type SourceSchema struct {
	File   string
	Schema *dsl.SchemaNode
}

// BuildResult is the merged output of loading every .firm file in a
// workspace: entities and schemas in deterministic order (file path, then
// in-file position), ready to hand to pkg/graph and pkg/schema.
type BuildResult struct {
	Entities []SourceEntity
	Schemas  []SourceSchema
}

// DuplicateEntityError reports two entities sharing a FullId.
type DuplicateEntityError struct {
	FullId    string
	FirstFile string
	SecondFile string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("duplicate entity %s defined in both %s and %s", e.FullId, e.FirstFile, e.SecondFile)
}

// DuplicateSchemaError reports two schema blocks for the same entity type.
type DuplicateSchemaError struct {
	Type       string
	FirstFile  string
	SecondFile string
}

func (e *DuplicateSchemaError) Error() string {
	return fmt.Sprintf("duplicate schema for type %s defined in both %s and %s", e.Type, e.FirstFile, e.SecondFile)
}

// BuildErrors collects every ParseError/DuplicateEntityError/
// DuplicateSchemaError found while loading a workspace (spec.md §7: "the
// loader collects multiple ... errors per build").
type BuildErrors struct {
	ParseErrors []*dsl.ParseError
	Duplicates  []error
}

func (e *BuildErrors) HasErrors() bool {
	return len(e.ParseErrors) > 0 || len(e.Duplicates) > 0
}

func (e *BuildErrors) Error() string {
	var lines []string
	for _, pe := range e.ParseErrors {
		lines = append(lines, pe.Error())
	}
	for _, d := range e.Duplicates {
		lines = append(lines, d.Error())
	}
	return strings.Join(lines, "\n")
}

// LoadDirectory recursively enumerates *.firm files under root, parses
// each, rebases relative Path values, and merges the results.
func LoadDirectory(root string) (*BuildResult, *BuildErrors) {
	files, err := discoverFirmFiles(root)
	if err != nil {
		errs := &BuildErrors{}
		errs.Duplicates = append(errs.Duplicates, fmt.Errorf("discovering .firm files under %s: %w", root, err))
		return nil, errs
	}
	sort.Strings(files)

	result := &BuildResult{}
	errs := &BuildErrors{}

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			errs.Duplicates = append(errs.Duplicates, fmt.Errorf("reading %s: %w", path, err))
			continue
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		mergeFile(relPath, string(raw), result, errs)
	}

	log.WithFields(logrus.Fields{
		"root":  root,
		"files": len(files),
	}).Info("loaded workspace directory")
	if errs.HasErrors() {
		log.WithField("errors", len(errs.ParseErrors)+len(errs.Duplicates)).Warn("workspace directory load had errors")
	}

	return result, errs
}

// LoadFile parses a single .firm file and merges it alone into a
// BuildResult — the collaborator-facing "single file path" input mode of
// spec.md §4.3.
func LoadFile(path string) (*BuildResult, *BuildErrors) {
	raw, err := os.ReadFile(path)
	if err != nil {
		errs := &BuildErrors{}
		errs.Duplicates = append(errs.Duplicates, fmt.Errorf("reading %s: %w", path, err))
		return nil, errs
	}
	result := &BuildResult{}
	errs := &BuildErrors{}
	mergeFile(filepath.Base(path), string(raw), result, errs)
	log.WithField("path", path).Debug("loaded workspace file")
	return result, errs
}

// LoadSource parses an in-memory text blob as the sole source of a
// workspace; used by tests and the spec's "in-memory text blob" input
// mode. fileLabel annotates ParseError spans.
func LoadSource(fileLabel, src string) (*BuildResult, *BuildErrors) {
	result := &BuildResult{}
	errs := &BuildErrors{}
	mergeFile(fileLabel, src, result, errs)
	return result, errs
}

func discoverFirmFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".firm") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func mergeFile(relPath, src string, result *BuildResult, errs *BuildErrors) {
	normalized := normalizeSource(src)
	f, parseErrs := dsl.Parse(relPath, normalized)
	if parseErrs.HasErrors() {
		errs.ParseErrors = append(errs.ParseErrors, parseErrs.Errors...)
	}

	for _, entity := range f.Entities {
		rebasePaths(entity, relPath)
		for _, existing := range result.Entities {
			if existing.Entity.FullId() == entity.FullId() {
				log.WithField("full_id", entity.FullId()).Warn("duplicate entity encountered while merging workspace")
				errs.Duplicates = append(errs.Duplicates, &DuplicateEntityError{
					FullId: entity.FullId(), FirstFile: existing.File, SecondFile: relPath,
				})
			}
		}
		result.Entities = append(result.Entities, SourceEntity{File: relPath, Entity: entity})
	}

	for _, schema := range f.Schemas {
		for _, existing := range result.Schemas {
			if existing.Schema.Type == schema.Type {
				errs.Duplicates = append(errs.Duplicates, &DuplicateSchemaError{
					Type: schema.Type, FirstFile: existing.File, SecondFile: relPath,
				})
			}
		}
		result.Schemas = append(result.Schemas, SourceSchema{File: relPath, Schema: schema})
	}
}

// rebasePaths walks an entity's fields and rewrites relative Path values
// so they're stored relative to the workspace root, per spec.md §4.3 /
// §6 ("./x from <root>/a/b.firm becomes a/x"). Absolute paths (leading
// '/' or a Windows drive letter) pass through unchanged. List items are
// rebased too, since a Path can appear inside a homogeneous list.
func rebasePaths(entity *dsl.EntityNode, relPath string) {
	fileDir := filepath.Dir(relPath)
	for _, field := range entity.Fields {
		field.Value = rebaseFieldValue(field.Value, fileDir)
	}
}

func rebaseFieldValue(v value.FieldValue, fileDir string) value.FieldValue {
	switch vv := v.(type) {
	case value.Path:
		return value.Path(rebaseRelative(string(vv), fileDir))
	case value.List:
		if vv.ItemKind != value.KindPath {
			return v
		}
		rebased := make([]value.FieldValue, len(vv.Items))
		for i, item := range vv.Items {
			rebased[i] = rebaseFieldValue(item, fileDir)
		}
		return value.List{ItemKind: vv.ItemKind, Items: rebased}
	default:
		return v
	}
}

func isAbsolutePath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	if len(p) >= 3 && p[1] == ':' && (p[2] == '/' || p[2] == '\\') {
		return true
	}
	return false
}

func rebaseRelative(p, fileDir string) string {
	if isAbsolutePath(p) {
		return p
	}
	joined := filepath.ToSlash(filepath.Join(fileDir, p))
	return strings.TrimPrefix(joined, "./")
}
