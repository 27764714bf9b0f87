package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GetJob returns the job for (version, mapping), or (nil, nil) if none has
// ever been created.
func (s *Store) GetJob(version, mapping string) (*JobRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, version, mapping, status, progress, error, started_at, completed_at
		FROM jobs WHERE version = ? AND mapping = ?`, version, mapping)
	return scanJob(row)
}

// CreateJob creates a new pending JobRecord for (version, mapping) and
// returns its ID. If a job already exists for that key, its existing ID is
// returned and no new row is created, since (version, mapping) is unique
// per spec.md §3.4.
func (s *Store) CreateJob(version, mapping string) (string, error) {
	if existing, err := s.GetJob(version, mapping); err != nil {
		return "", err
	} else if existing != nil {
		return existing.ID, nil
	}
	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, version, mapping, status, progress)
		VALUES (?, ?, ?, ?, 0)`,
		id, version, mapping, JobPending)
	if err != nil {
		return "", fmt.Errorf("store: CreateJob: %w", err)
	}
	return id, nil
}

// UpdateJob sets status and optionally progress/errMsg on the job
// identified by id, stamping started_at on first transition to running and
// completed_at on transition to completed or failed.
func (s *Store) UpdateJob(id string, status JobStatus, progress *float64, errMsg string) error {
	now := time.Now().UTC().Unix()
	switch status {
	case JobRunning:
		_, err := s.db.Exec(`
			UPDATE jobs SET status = ?, started_at = COALESCE(started_at, ?), error = NULL
			WHERE id = ?`, status, now, id)
		if err != nil {
			return fmt.Errorf("store: UpdateJob(running): %w", err)
		}
	case JobCompleted, JobFailed:
		var errVal any
		if errMsg != "" {
			errVal = errMsg
		}
		_, err := s.db.Exec(`
			UPDATE jobs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
			status, now, errVal, id)
		if err != nil {
			return fmt.Errorf("store: UpdateJob(%s): %w", status, err)
		}
	default:
		_, err := s.db.Exec(`UPDATE jobs SET status = ? WHERE id = ?`, status, id)
		if err != nil {
			return fmt.Errorf("store: UpdateJob: %w", err)
		}
	}
	if progress != nil {
		if _, err := s.db.Exec(`UPDATE jobs SET progress = ? WHERE id = ?`, *progress, id); err != nil {
			return fmt.Errorf("store: UpdateJob(progress): %w", err)
		}
	}
	return nil
}

// DeleteJob removes the job record for (version, mapping), used by
// InvalidateVersion.
func (s *Store) DeleteJob(version, mapping string) error {
	_, err := s.db.Exec(`DELETE FROM jobs WHERE version = ? AND mapping = ?`, version, mapping)
	if err != nil {
		return fmt.Errorf("store: DeleteJob: %w", err)
	}
	return nil
}

func scanJob(row *sql.Row) (*JobRecord, error) {
	var r JobRecord
	var errMsg sql.NullString
	var startedAt, completedAt sql.NullInt64
	err := row.Scan(&r.ID, &r.Version, &r.Mapping, &r.Status, &r.Progress, &errMsg, &startedAt, &completedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("store: scanJob: %w", err)
	}
	r.Error = errMsg.String
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0).UTC()
		r.StartedAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		r.CompletedAt = &t
	}
	return &r, nil
}
