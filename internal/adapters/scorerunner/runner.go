// Package scorerunner pulls pending grading jobs from storage and executes
// them through the scoring service.
package scorerunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aslab/autoscore/internal/core"
	"github.com/aslab/autoscore/internal/domain/model"
	"github.com/aslab/autoscore/internal/service"
)

// RunnerOptions configures the score runner adapter.
type RunnerOptions struct {
	Jobs    core.JobRepository
	Scoring *service.ScoringService
	Logger  *slog.Logger

	// Concurrency is the number of jobs executed at once; defaults to 1.
	// Per-student parallelism lives inside the scoring service, so one
	// runner worker is usually enough.
	Concurrency int

	// PollInterval is how long an idle worker sleeps before checking for
	// pending jobs again; defaults to 2s.
	PollInterval time.Duration
}

// Runner owns the reserve-execute loop. Job reservation uses row locking, so
// multiple runner processes can share one database safely.
type Runner struct {
	jobs     core.JobRepository
	scoring  *service.ScoringService
	logger   *slog.Logger
	workers  int
	interval time.Duration
}

// NewRunner constructs a Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job repository is required")
	}
	if opts.Scoring == nil {
		return nil, errors.New("scoring service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Runner{
		jobs:     opts.Jobs,
		scoring:  opts.Scoring,
		logger:   logger.With("component", "score_runner"),
		workers:  workers,
		interval: interval,
	}, nil
}

// Run starts worker goroutines and processes jobs until the context is
// cancelled. The first fatal error cancels all workers and is returned.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting score runner",
		"workers", r.workers, "poll_interval", r.interval)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	for range r.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.workerLoop(ctx); err != nil {
				// first error wins, cancels all workers
				select {
				case errCh <- err:
					cancel()
				default:
				}
			}
		}()
	}

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return ctx.Err()
	}
}

func (r *Runner) workerLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		job, err := r.jobs.ReserveNext(ctx)
		switch {
		case err == nil:
			r.processJob(ctx, job)
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.waitForPoll(ctx) {
				return nil
			}
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return fmt.Errorf("reserve next: %w", err)
		}
	}
	return ctx.Err()
}

func (r *Runner) waitForPoll(ctx context.Context) bool {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// processJob runs one job. The scoring service already converts every
// failure into a failed job record, so the runner only logs.
func (r *Runner) processJob(ctx context.Context, job *model.Job) {
	start := time.Now()
	r.logger.InfoContext(ctx, "job reserved", "job_id", job.ID, "owner", job.Owner)

	if err := r.scoring.Run(ctx, job); err != nil {
		r.logger.ErrorContext(ctx, "job failed",
			"job_id", job.ID, "elapsed", time.Since(start), "error", err)
		return
	}
	r.logger.InfoContext(ctx, "job finished",
		"job_id", job.ID, "elapsed", time.Since(start))
}
