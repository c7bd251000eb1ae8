package graph

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresCache stores the current/backup snapshot pair as two columns of
// a single row, rather than two files — the rotation discipline is the
// same as FileCache (current overwrites, but only after the prior value
// moves into backup), applied to a table instead of a directory.
type PostgresCache struct {
	db    *sql.DB
	table string
}

const postgresCacheSchema = `
CREATE TABLE IF NOT EXISTS %s (
	id SERIAL PRIMARY KEY,
	current_snapshot BYTEA,
	backup_snapshot BYTEA
)`

// NewPostgresCache opens a connection to url and ensures the backing table
// exists. table must already be a validated identifier (callers pass a
// fixed constant; it is not meant to carry user input).
func NewPostgresCache(ctx context.Context, url, table string) (*PostgresCache, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(postgresCacheSchema, table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &PostgresCache{db: db, table: table}, nil
}

func (c *PostgresCache) Write(ctx context.Context, data []byte) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache write transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`SELECT current_snapshot FROM %s WHERE id = 1`, c.table)
	var existing []byte
	err = tx.QueryRowContext(ctx, query).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		insert := fmt.Sprintf(`INSERT INTO %s (id, current_snapshot, backup_snapshot) VALUES (1, $1, NULL)`, c.table)
		if _, err := tx.ExecContext(ctx, insert, data); err != nil {
			return fmt.Errorf("insert initial cache row: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read existing cache row: %w", err)
	default:
		update := fmt.Sprintf(`UPDATE %s SET backup_snapshot = current_snapshot, current_snapshot = $1 WHERE id = 1`, c.table)
		if _, err := tx.ExecContext(ctx, update, data); err != nil {
			return fmt.Errorf("rotate and update cache row: %w", err)
		}
	}

	return tx.Commit()
}

func (c *PostgresCache) ReadCurrent(ctx context.Context) ([]byte, error) {
	return c.readColumn(ctx, "current_snapshot")
}

func (c *PostgresCache) ReadBackup(ctx context.Context) ([]byte, error) {
	return c.readColumn(ctx, "backup_snapshot")
}

func (c *PostgresCache) readColumn(ctx context.Context, column string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = 1`, column, c.table)
	var data []byte
	err := c.db.QueryRowContext(ctx, query).Scan(&data)
	if err == sql.ErrNoRows || (err == nil && data == nil) {
		return nil, &CacheFormatError{Path: c.table + "." + column, Reason: "no snapshot stored"}
	}
	if err != nil {
		return nil, fmt.Errorf("read cache column %s: %w", column, err)
	}
	return data, nil
}

var _ CacheStore = (*PostgresCache)(nil)
