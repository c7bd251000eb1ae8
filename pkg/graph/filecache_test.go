package graph

import (
	"context"
	"testing"

	"github.com/42futures/firm/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheRotatesCurrentToBackupOnSecondWrite(t *testing.T) {
	ctx := context.Background()
	cache, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	g1, err := buildFrom(t, nil, `task t1 { name = "First build" }`)
	require.NoError(t, err)
	require.NoError(t, SaveGraph(ctx, cache, g1))

	_, err = cache.ReadBackup(ctx)
	require.Error(t, err, "no backup should exist after the first write")

	g2, err := buildFrom(t, nil, `task t1 { name = "Second build" }`)
	require.NoError(t, err)
	require.NoError(t, SaveGraph(ctx, cache, g2))

	currentData, err := cache.ReadCurrent(ctx)
	require.NoError(t, err)
	backupData, err := cache.ReadBackup(ctx)
	require.NoError(t, err)

	reloadedCurrent, err := Deserialize(currentData)
	require.NoError(t, err)
	reloadedBackup, err := Deserialize(backupData)
	require.NoError(t, err)

	current, ok := reloadedCurrent.Get(fullId("task", "t1"))
	require.True(t, ok)
	assert.Equal(t, value.String("Second build"), current.Fields["name"])

	backup, ok := reloadedBackup.Get(fullId("task", "t1"))
	require.True(t, ok)
	assert.Equal(t, value.String("First build"), backup.Fields["name"])
}

func TestFileCacheReadCurrentBeforeAnyWriteIsCacheFormatError(t *testing.T) {
	ctx := context.Background()
	cache, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	_, err = cache.ReadCurrent(ctx)
	require.Error(t, err)
	_, ok := err.(*CacheFormatError)
	assert.True(t, ok)
}

func TestLoadGraphRoundTripsThroughFileCache(t *testing.T) {
	ctx := context.Background()
	cache, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	g, err := buildFrom(t, nil, `
person john { name = "John" }
contact c1 { person_ref = person.john }
`)
	require.NoError(t, err)
	require.NoError(t, SaveGraph(ctx, cache, g))

	loaded, err := LoadGraph(ctx, cache)
	require.NoError(t, err)

	neighbors := loaded.Neighbors(fullId("contact", "c1"), DirectionBoth)
	require.Len(t, neighbors, 1)
	assert.Equal(t, fullId("person", "john"), neighbors[0].Full)
}
