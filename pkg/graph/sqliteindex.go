package graph

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteIndex is a read-only secondary index over a frozen graph, built
// once at load time to make a by-type listing over a very large graph an
// indexed lookup instead of a full scan of the in-memory maps. It stores
// no field values itself — only (entity_type, full_id, position) rows —
// and is rebuilt from scratch any time the graph that backs it is
// rebuilt. FullIdsByType is its only lookup; there is no per-id query.
type SQLiteIndex struct {
	db *sql.DB
}

const sqliteIndexSchema = `
CREATE TABLE IF NOT EXISTS entity_index (
	entity_type TEXT NOT NULL,
	full_id TEXT NOT NULL PRIMARY KEY,
	position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entity_type ON entity_index(entity_type);
`

// NewSQLiteIndex opens (or creates) the sqlite database at path and
// ensures its schema exists. Pass ":memory:" for a process-local index.
func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	if _, err := db.Exec(sqliteIndexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite index schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

// Rebuild replaces the index's contents with g's entities, in g's
// insertion order.
func (idx *SQLiteIndex) Rebuild(ctx context.Context, g *Graph) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entity_index`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entity_index (entity_type, full_id, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare index insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range g.ListAll() {
		if _, err := stmt.ExecContext(ctx, string(e.Full.Type), e.Full.String(), i); err != nil {
			return fmt.Errorf("insert index row for %s: %w", e.Full, err)
		}
	}

	return tx.Commit()
}

// FullIdsByType returns every FullId string indexed under entityType, ordered by
// their original build-insertion position.
func (idx *SQLiteIndex) FullIdsByType(ctx context.Context, entityType string) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx,
		`SELECT full_id FROM entity_index WHERE entity_type = ? ORDER BY position ASC`, entityType)
	if err != nil {
		return nil, fmt.Errorf("query index by type: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fullId string
		if err := rows.Scan(&fullId); err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		out = append(out, fullId)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (idx *SQLiteIndex) Close() error {
	return idx.db.Close()
}
