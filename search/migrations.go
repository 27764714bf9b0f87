package search

import (
	"database/sql"
	"embed"
	"fmt"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// migration is one forward-only schema step, grounded on the same
// numbered-migration idiom used by internal/store (itself grounded on
// libvuln/migrations/migrations.go), kept separate here because the
// search index lives in its own SQLite file.
type migration struct {
	ID   int
	File string
}

var migrations = []migration{
	{ID: 1, File: "schema/001_init.sql"},
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (id INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("search: creating schema_migrations: %w", err)
	}
	for _, m := range migrations {
		var applied int
		if err := db.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE id = ?`, m.ID).Scan(&applied); err != nil {
			return fmt.Errorf("search: checking migration %d: %w", m.ID, err)
		}
		if applied > 0 {
			continue
		}
		b, err := schemaFS.ReadFile(m.File)
		if err != nil {
			return fmt.Errorf("search: reading migration %d: %w", m.ID, err)
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("search: beginning migration %d: %w", m.ID, err)
		}
		if _, err := tx.Exec(string(b)); err != nil {
			tx.Rollback()
			return fmt.Errorf("search: applying migration %d: %w", m.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (id) VALUES (?)`, m.ID); err != nil {
			tx.Rollback()
			return fmt.Errorf("search: recording migration %d: %w", m.ID, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("search: committing migration %d: %w", m.ID, err)
		}
	}
	return nil
}
