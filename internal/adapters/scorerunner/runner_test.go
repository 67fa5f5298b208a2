package scorerunner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aslab/autoscore/config"
	"github.com/aslab/autoscore/internal/domain/model"
	"github.com/aslab/autoscore/internal/llm"
	"github.com/aslab/autoscore/internal/service"
	"github.com/aslab/autoscore/internal/testutil"
)

type passingScorer struct{}

func (passingScorer) ScoreReport(context.Context, llm.ScoreReportInput) model.ScoringResult {
	return model.ScoringResult{
		StudentID:   "A11202301",
		StudentName: "Budi Santoso",
		Score:       testutil.Ptr(80),
		Evaluation:  "Cukup baik.",
	}
}

func (passingScorer) Preflight(context.Context) error { return nil }

type staticExtractor struct{}

func (staticExtractor) ExtractWithRetry(context.Context, string) (string, bool) {
	return "Laporan praktikum membahas instalasi dan konfigurasi server web apache", true
}

func (staticExtractor) ExtractMany(context.Context, []string) (string, bool) {
	return "Laporan praktikum membahas instalasi dan konfigurasi server web apache", true
}

type noopReports struct{}

func (noopReports) WriteCSV(*model.Job, []*model.StudentTask) (string, error) {
	return "/results/report.csv", nil
}

func (noopReports) WriteXLSX(*model.Job, []*model.StudentTask) (string, error) {
	return "/results/report.xlsx", nil
}

func newTestScoring(jobs *testutil.FakeJobRepo, tasks *testutil.FakeTaskRepo) *service.ScoringService {
	return service.NewScoringService(service.ScoringServiceOptions{
		Jobs:             jobs,
		Tasks:            tasks,
		Scorer:           passingScorer{},
		Extract:          staticExtractor{},
		Reports:          noopReports{},
		ScoringConfig:    config.ScoringConfig{MaxWorkers: 2, EvaluationMaxWords: 100},
		ExtractionConfig: config.ExtractionConfig{MinSignalWords: 3},
	})
}

func TestNewRunner_Validation(t *testing.T) {
	t.Parallel()

	jobs := testutil.NewFakeJobRepo()
	scoring := newTestScoring(jobs, testutil.NewFakeTaskRepo())

	_, err := NewRunner(RunnerOptions{Scoring: scoring})
	require.ErrorContains(t, err, "job repository is required")

	_, err = NewRunner(RunnerOptions{Jobs: jobs})
	require.ErrorContains(t, err, "scoring service is required")

	r, err := NewRunner(RunnerOptions{Jobs: jobs, Scoring: scoring})
	require.NoError(t, err)
	assert.Equal(t, 1, r.workers)
	assert.Equal(t, 2*time.Second, r.interval)
}

func TestRunner_ProcessesPendingJob(t *testing.T) {
	t.Parallel()

	jobs := testutil.NewFakeJobRepo()
	jobs.Put(testutil.NewJob().WithStatus(model.JobStatusPending).Build())
	tasks := testutil.NewFakeTaskRepo(testutil.NewTask().Build())

	r, err := NewRunner(RunnerOptions{
		Jobs:         jobs,
		Scoring:      newTestScoring(jobs, tasks),
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		job := jobs.Snapshot("job-1")
		return job != nil && job.Status == model.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	job := jobs.Snapshot("job-1")
	require.NotNil(t, job.StatusMessage)
	assert.Equal(t, "Berhasil menilai 1/1 laporan", *job.StatusMessage)
	assert.Equal(t, model.TaskStatusCompleted, tasks.Snapshot("task-1").Status)
}

func TestRunner_IdleUntilCancelled(t *testing.T) {
	t.Parallel()

	jobs := testutil.NewFakeJobRepo()
	r, err := NewRunner(RunnerOptions{
		Jobs:         jobs,
		Scoring:      newTestScoring(jobs, testutil.NewFakeTaskRepo()),
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestRunner_FatalReserveErrorStopsAllWorkers(t *testing.T) {
	t.Parallel()

	jobs := testutil.NewFakeJobRepo()
	jobs.Err = errors.New("connection refused")

	r, err := NewRunner(RunnerOptions{
		Jobs:         jobs,
		Scoring:      newTestScoring(jobs, testutil.NewFakeTaskRepo()),
		Concurrency:  3,
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserve next")
	assert.Contains(t, err.Error(), "connection refused")
}
