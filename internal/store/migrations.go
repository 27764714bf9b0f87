package store

import (
	"database/sql"
	"embed"
	"fmt"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// migration is one forward-only schema step, applied inside a transaction
// and recorded in schema_migrations, grounded on
// libvuln/migrations/migrations.go's numbered-migration-file pattern
// (simplified here: no external migration-runner dependency, since a
// single local SQLite file doesn't need Postgres-grade migration
// tooling).
type migration struct {
	ID   int
	File string
}

var migrations = []migration{
	{ID: 1, File: "schema/001_init.sql"},
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (id INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("store: creating schema_migrations: %w", err)
	}
	for _, m := range migrations {
		var applied int
		err := db.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE id = ?`, m.ID).Scan(&applied)
		if err != nil {
			return fmt.Errorf("store: checking migration %d: %w", m.ID, err)
		}
		if applied > 0 {
			continue
		}
		b, err := schemaFS.ReadFile(m.File)
		if err != nil {
			return fmt.Errorf("store: reading migration %d: %w", m.ID, err)
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("store: beginning migration %d: %w", m.ID, err)
		}
		if _, err := tx.Exec(string(b)); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: applying migration %d: %w", m.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (id) VALUES (?)`, m.ID); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: recording migration %d: %w", m.ID, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: committing migration %d: %w", m.ID, err)
		}
	}
	return nil
}
