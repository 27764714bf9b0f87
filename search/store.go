// Package search implements C14/C15: a full-text search index over
// decompiled Minecraft source, backed by SQLite FTS5 via
// modernc.org/sqlite, and the query engine layered on top of it.
//
// Grounded on internal/store's embedded-sqlite idiom for the connection
// and migration handling, and on pkg/microbatch's queue-then-flush shape
// for the indexing writes (adapted from pgx.Batch to plain database/sql
// transactions, since this store has no Postgres connection to batch
// over).
package search

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Index wraps the SQLite database backing the full-text search store.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) the FTS5-backed index database at
// path, applying any pending migrations.
func Open(path string) (*Index, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("search: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (ix *Index) Close() error { return ix.db.Close() }
