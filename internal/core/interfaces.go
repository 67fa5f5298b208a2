// Package core defines the ports and business services of the autoscore
// grading engine. The core owns the interfaces; the data layer provides
// implementations.
package core

import (
	"context"
	"time"

	"github.com/aslab/autoscore/internal/domain/model"
)

// JobRepository defines durable storage operations for grading jobs.
type JobRepository interface {
	// Create inserts a job and its pending student tasks in one transaction.
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)

	// GetByID returns a job by id.
	GetByID(ctx context.Context, id string) (*model.Job, error)

	// ReserveNext atomically claims the oldest pending job and marks it
	// processing. Returns model.ErrNoJobsAvailable when nothing is pending.
	ReserveNext(ctx context.Context) (*model.Job, error)

	// MarkCompleted finalizes a processing job with a summary message and the
	// report artifact path.
	MarkCompleted(ctx context.Context, id, message, reportPath string) error

	// MarkFailed finalizes a job with a failure message. Legal from pending
	// or processing; terminal states are absorbing.
	MarkFailed(ctx context.Context, id, message string) error

	// IncrementProcessed bumps the processed-files counter by one, capped at
	// total_files.
	IncrementProcessed(ctx context.Context, id string) error

	// Delete removes a job and cascades to its student tasks.
	Delete(ctx context.Context, id string) error

	// Stats returns counts of jobs per status.
	Stats(ctx context.Context) (model.JobStats, error)
}

// StudentTaskRepository defines durable storage operations for per-student tasks.
type StudentTaskRepository interface {
	// ListByJob returns a job's tasks ordered by filename.
	ListByJob(ctx context.Context, jobID string) ([]*model.StudentTask, error)

	// ApplyResult records a task's terminal outcome. Each task owns a
	// disjoint row; last writer wins.
	ApplyResult(ctx context.Context, params ApplyTaskResultParams) error

	// CountByJob returns per-status task counts for a job.
	CountByJob(ctx context.Context, jobID string) (model.TaskCounts, error)
}

// ApplyTaskResultParams carries one worker's terminal outcome for a task.
type ApplyTaskResultParams struct {
	TaskID       string
	StudentID    *string
	StudentName  *string
	Score        *int
	Evaluation   string
	OCRStatus    string
	OCRDetail    string
	Status       model.TaskStatus
	ErrorMessage *string

	ExtractMillis int64
	ScoreMillis   int64
	ContentLength int
}

// SettingsRepository is the runtime key-value store for provider
// configuration. Get distinguishes "explicitly set to empty" from "unset":
// an operator-cleared key must be respected as no key, not silently replaced
// by an environment default.
type SettingsRepository interface {
	// Get returns (value, true, nil) when the key exists, even with an empty
	// value, and ("", false, nil) when it was never set.
	Get(ctx context.Context, key string) (string, bool, error)

	// GetAll returns every stored setting.
	GetAll(ctx context.Context) (map[string]string, error)

	// Set stores or replaces a setting.
	Set(ctx context.Context, key, value string) error

	// Delete removes a setting, reverting it to unset.
	Delete(ctx context.Context, key string) error
}

// CacheRepository defines the shared cache operations used for progress
// snapshots. Implementations must tolerate concurrent writers.
type CacheRepository interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
}
