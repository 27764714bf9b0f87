// Package store implements C3: the embedded metadata store for version,
// mapping, and job records described in spec.md §4.3, backed by
// modernc.org/sqlite (the pure-Go SQLite driver already pulled in by the
// retrieved corpus via rpm/sqlite).
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a *sql.DB pointed at the cache's metadata database.
//
// A single connection is used deliberately: the store is local-only
// (never shared across processes over a network), so the simplicity of
// one connection with SQLite's own locking outweighs the throughput lost
// to serializing every write through it. See DESIGN.md.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path with WAL
// journaling and foreign keys enabled, and applies any pending migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
