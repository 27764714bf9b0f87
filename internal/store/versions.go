package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetVersion returns the cached record for version, or (nil, nil) if none
// exists.
func (s *Store) GetVersion(version string) (*VersionRecord, error) {
	row := s.db.QueryRow(`SELECT version, jar_path, jar_sha1, last_accessed_at FROM versions WHERE version = ?`, version)
	var r VersionRecord
	var lastAccessed int64
	err := row.Scan(&r.Version, &r.JarPath, &r.JarSha1, &lastAccessed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("store: GetVersion: %w", err)
	}
	r.LastAccessedAt = time.Unix(lastAccessed, 0).UTC()
	return &r, nil
}

// UpsertVersion inserts or replaces the record for r.Version.
func (s *Store) UpsertVersion(r VersionRecord) error {
	if r.LastAccessedAt.IsZero() {
		r.LastAccessedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO versions (version, jar_path, jar_sha1, last_accessed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (version) DO UPDATE SET
			jar_path = excluded.jar_path,
			jar_sha1 = excluded.jar_sha1,
			last_accessed_at = excluded.last_accessed_at`,
		r.Version, r.JarPath, r.JarSha1, r.LastAccessedAt.Unix())
	if err != nil {
		return fmt.Errorf("store: UpsertVersion: %w", err)
	}
	return nil
}

// TouchVersion bumps last_accessed_at to now for an existing version.
func (s *Store) TouchVersion(version string) error {
	_, err := s.db.Exec(`UPDATE versions SET last_accessed_at = ? WHERE version = ?`, time.Now().UTC().Unix(), version)
	if err != nil {
		return fmt.Errorf("store: TouchVersion: %w", err)
	}
	return nil
}

// ListVersions returns every cached VersionRecord, most recently accessed
// first.
func (s *Store) ListVersions() ([]VersionRecord, error) {
	rows, err := s.db.Query(`SELECT version, jar_path, jar_sha1, last_accessed_at FROM versions ORDER BY last_accessed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: ListVersions: %w", err)
	}
	defer rows.Close()
	var out []VersionRecord
	for rows.Next() {
		var r VersionRecord
		var lastAccessed int64
		if err := rows.Scan(&r.Version, &r.JarPath, &r.JarSha1, &lastAccessed); err != nil {
			return nil, fmt.Errorf("store: ListVersions scan: %w", err)
		}
		r.LastAccessedAt = time.Unix(lastAccessed, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
