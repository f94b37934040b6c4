// Package repository persists job outcomes to Postgres, mirroring the
// pipeline's database service. The store is optional: when the database is
// disabled the processor simply runs without one, and persistence failures
// are advisory (logged, never fatal to the job).
package repository

import (
	"context"
	"time"
)

// Kind classifies what the worker decided the source file was
type Kind string

const (
	KindArchive Kind = "archive"
	KindFile    Kind = "file"
	KindUnknown Kind = "unknown"
)

// Status is the terminal state of one processing attempt
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// JobRecord is one row in intake_jobs: the outcome of a single job
type JobRecord struct {
	ID          string    `db:"id"`
	SourcePath  string    `db:"source_path"`
	Kind        Kind      `db:"kind"`
	Status      Status    `db:"status"`
	Detail      string    `db:"detail"`
	ProcessedAt time.Time `db:"processed_at"`
}

// Store records job outcomes
type Store interface {
	SaveOutcome(ctx context.Context, rec JobRecord) error
	Close() error
}
