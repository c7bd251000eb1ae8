package graph

import "context"

// CacheStore persists and retrieves a Graph's serialized snapshot, with
// current/backup rotation on every write (spec.md §4.5, §8 scenario 7):
// a write moves the existing "current" into "backup" before the new
// snapshot takes its place, so one rebuild's cache is always recoverable.
type CacheStore interface {
	// Write rotates the existing current snapshot to backup, then stores
	// data as the new current snapshot.
	Write(ctx context.Context, data []byte) error

	// ReadCurrent returns the current snapshot's bytes.
	ReadCurrent(ctx context.Context) ([]byte, error)

	// ReadBackup returns the backup snapshot's bytes, from one rotation
	// prior to current.
	ReadBackup(ctx context.Context) ([]byte, error)
}

// SaveGraph serializes g and writes it through store, rotating any
// existing current snapshot to backup first.
func SaveGraph(ctx context.Context, store CacheStore, g *Graph) error {
	data, err := g.Serialize()
	if err != nil {
		return err
	}
	return store.Write(ctx, data)
}

// LoadGraph reads store's current snapshot and deserializes it.
func LoadGraph(ctx context.Context, store CacheStore) (*Graph, error) {
	data, err := store.ReadCurrent(ctx)
	if err != nil {
		return nil, err
	}
	return Deserialize(data)
}
