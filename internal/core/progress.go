package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aslab/autoscore/internal/domain/model"
)

// ProgressTracker is the process-wide progress snapshot map, keyed by job id.
// It is an explicit dependency passed into the orchestrator rather than a
// package-level singleton. Entries are created when a job starts, updated by
// the job's own goroutine, and forgotten once a terminal snapshot has had a
// chance to be observed (TTL); readers fall back to durable task counts when
// no snapshot exists, e.g. after a process restart.
//
// An optional CacheRepository mirrors snapshots into a shared cache so that
// polling can survive a process handoff.
type ProgressTracker struct {
	mu    sync.RWMutex
	snaps map[string]model.ProgressSnapshot

	cache  CacheRepository // optional
	jobs   JobRepository
	tasks  StudentTaskRepository
	ttl    time.Duration
	logger *slog.Logger
}

// ProgressTrackerOptions groups dependencies for NewProgressTracker.
type ProgressTrackerOptions struct {
	Jobs   JobRepository
	Tasks  StudentTaskRepository
	Cache  CacheRepository // optional shared cache mirror
	TTL    time.Duration   // snapshot TTL in the shared cache; defaults to 1h
	Logger *slog.Logger
}

// NewProgressTracker creates a ProgressTracker.
func NewProgressTracker(opts ProgressTrackerOptions) *ProgressTracker {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressTracker{
		snaps:  make(map[string]model.ProgressSnapshot),
		cache:  opts.Cache,
		jobs:   opts.Jobs,
		tasks:  opts.Tasks,
		ttl:    ttl,
		logger: logger,
	}
}

// Update records a snapshot for a job. Cache mirror failures are logged, not
// propagated: the snapshot is best-effort by contract.
func (t *ProgressTracker) Update(ctx context.Context, jobID string, snap model.ProgressSnapshot) {
	t.mu.Lock()
	t.snaps[jobID] = snap
	t.mu.Unlock()

	if t.cache == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		t.logger.ErrorContext(ctx, "marshal progress snapshot", "job_id", jobID, "error", err)
		return
	}
	if err := t.cache.Set(ctx, progressKey(jobID), payload, t.ttl); err != nil {
		t.logger.WarnContext(ctx, "mirror progress snapshot", "job_id", jobID, "error", err)
	}
}

// Get returns the current snapshot for a job. Lookup order: local map, shared
// cache, then durable Job/StudentTask records.
func (t *ProgressTracker) Get(ctx context.Context, jobID string) (model.ProgressSnapshot, error) {
	t.mu.RLock()
	snap, ok := t.snaps[jobID]
	t.mu.RUnlock()
	if ok {
		return snap, nil
	}

	if t.cache != nil {
		payload, err := t.cache.Get(ctx, progressKey(jobID))
		if err != nil {
			t.logger.WarnContext(ctx, "read cached progress snapshot", "job_id", jobID, "error", err)
		} else if len(payload) > 0 {
			var cached model.ProgressSnapshot
			if uerr := json.Unmarshal(payload, &cached); uerr == nil {
				return cached, nil
			}
		}
	}

	return t.rebuildFromDurable(ctx, jobID)
}

// Forget drops a job's snapshot from the local map and the shared cache.
// Called after a terminal state has been observed by all consumers.
func (t *ProgressTracker) Forget(ctx context.Context, jobID string) {
	t.mu.Lock()
	delete(t.snaps, jobID)
	t.mu.Unlock()

	if t.cache != nil {
		if _, err := t.cache.Delete(ctx, progressKey(jobID)); err != nil {
			t.logger.WarnContext(ctx, "delete cached progress snapshot", "job_id", jobID, "error", err)
		}
	}
}

// rebuildFromDurable reconstructs a snapshot from Job and StudentTask records.
func (t *ProgressTracker) rebuildFromDurable(ctx context.Context, jobID string) (model.ProgressSnapshot, error) {
	job, err := t.jobs.GetByID(ctx, jobID)
	if err != nil {
		return model.ProgressSnapshot{}, fmt.Errorf("load job %s: %w", jobID, err)
	}

	counts, err := t.tasks.CountByJob(ctx, jobID)
	if err != nil {
		return model.ProgressSnapshot{}, fmt.Errorf("count tasks for job %s: %w", jobID, err)
	}

	message := ""
	if job.StatusMessage != nil {
		message = *job.StatusMessage
	}
	return model.NewProgressSnapshot(job.Status, message, counts.Processed(), counts.Total), nil
}

func progressKey(jobID string) string {
	return "progress:job:" + jobID
}
