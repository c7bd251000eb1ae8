package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/42futures/firm/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDirectoryMergesMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.firm", `person john { name = "John" }`)
	writeFile(t, dir, "sub/b.firm", `contact c1 { person_ref = person.john }`)

	result, errs := LoadDirectory(dir)
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, result.Entities, 2)
	assert.Equal(t, "a.firm", result.Entities[0].File)
	assert.Equal(t, filepath.ToSlash(filepath.Join("sub", "b.firm")), result.Entities[1].File)
}

func TestLoadDirectoryDetectsDuplicateEntity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.firm", `person john { name = "John" }`)
	writeFile(t, dir, "b.firm", `person john { name = "Johnny" }`)

	_, errs := LoadDirectory(dir)
	require.True(t, errs.HasErrors())
	require.Len(t, errs.Duplicates, 1)
	var dupErr *DuplicateEntityError
	require.ErrorAs(t, errs.Duplicates[0], &dupErr)
	assert.Equal(t, "person.john", dupErr.FullId)
}

func TestLoadDirectoryDetectsDuplicateSchema(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.firm", `schema task { field { name = "name" required = true } }`)
	writeFile(t, dir, "b.firm", `schema task { field { name = "priority" required = false } }`)

	_, errs := LoadDirectory(dir)
	require.True(t, errs.HasErrors())
	require.Len(t, errs.Duplicates, 1)
	var dupErr *DuplicateSchemaError
	require.ErrorAs(t, errs.Duplicates[0], &dupErr)
	assert.Equal(t, "task", dupErr.Type)
}

func TestLoadDirectoryRebasesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/b.firm", `doc d1 { location = path"./x.txt" }`)

	result, errs := LoadDirectory(dir)
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, result.Entities, 1)
	p, ok := result.Entities[0].Entity.Fields[0].Value.(value.Path)
	require.True(t, ok)
	assert.Equal(t, "a/x.txt", string(p))
}

func TestLoadDirectoryLeavesAbsolutePathsUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/b.firm", `doc d1 { location = path"/etc/hosts" }`)

	result, errs := LoadDirectory(dir)
	require.False(t, errs.HasErrors(), errs.Error())
	p, ok := result.Entities[0].Entity.Fields[0].Value.(value.Path)
	require.True(t, ok)
	assert.Equal(t, "/etc/hosts", string(p))
}

func TestLoadSourceParsesInMemoryBlob(t *testing.T) {
	result, errs := LoadSource("inline", `task t1 { name = "x" }`)
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, result.Entities, 1)
}
