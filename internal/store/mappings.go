package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetMapping returns the cached record for (version, mapping), or (nil, nil)
// if none exists.
func (s *Store) GetMapping(version, mapping string) (*MappingRecord, error) {
	row := s.db.QueryRow(`SELECT version, mapping, file_path, downloaded_at FROM mappings WHERE version = ? AND mapping = ?`, version, mapping)
	var r MappingRecord
	var downloadedAt int64
	err := row.Scan(&r.Version, &r.Mapping, &r.FilePath, &downloadedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("store: GetMapping: %w", err)
	}
	r.DownloadedAt = time.Unix(downloadedAt, 0).UTC()
	return &r, nil
}

// UpsertMapping inserts or replaces the record keyed by (r.Version, r.Mapping).
func (s *Store) UpsertMapping(r MappingRecord) error {
	if r.DownloadedAt.IsZero() {
		r.DownloadedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO mappings (version, mapping, file_path, downloaded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (version, mapping) DO UPDATE SET
			file_path = excluded.file_path,
			downloaded_at = excluded.downloaded_at`,
		r.Version, r.Mapping, r.FilePath, r.DownloadedAt.Unix())
	if err != nil {
		return fmt.Errorf("store: UpsertMapping: %w", err)
	}
	return nil
}

// DeleteMapping removes the record for (version, mapping).
// InvalidateVersion does not call it.
func (s *Store) DeleteMapping(version, mapping string) error {
	_, err := s.db.Exec(`DELETE FROM mappings WHERE version = ? AND mapping = ?`, version, mapping)
	if err != nil {
		return fmt.Errorf("store: DeleteMapping: %w", err)
	}
	return nil
}
