package store

import "time"

// JobStatus enumerates the lifecycle of a JobRecord, per spec.md §3.4.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// VersionRecord caches a downloaded+verified jar's location.
type VersionRecord struct {
	Version        string
	JarPath        string
	JarSha1        string
	LastAccessedAt time.Time
}

// MappingRecord caches a resolved Tiny v2 file's location.
type MappingRecord struct {
	Version      string
	Mapping      string
	FilePath     string
	DownloadedAt time.Time
}

// JobRecord tracks a long-running pipeline stage.
type JobRecord struct {
	ID          string
	Version     string
	Mapping     string
	Status      JobStatus
	Progress    float64
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
}
