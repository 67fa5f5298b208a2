package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aslab/autoscore/config"
	"github.com/aslab/autoscore/internal/core"
	"github.com/aslab/autoscore/internal/domain/model"
	"github.com/aslab/autoscore/internal/llm"
	"github.com/aslab/autoscore/internal/testutil"
)

type scorerStub struct {
	mu           sync.Mutex
	result       model.ScoringResult
	preflightErr error
	inputs       []llm.ScoreReportInput
}

func (s *scorerStub) ScoreReport(_ context.Context, in llm.ScoreReportInput) model.ScoringResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, in)
	return s.result
}

func (s *scorerStub) Preflight(context.Context) error {
	return s.preflightErr
}

func (s *scorerStub) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

type extractorStub struct {
	mu        sync.Mutex
	text      string
	ok        bool
	single    []string
	manyCalls [][]string
}

func (e *extractorStub) ExtractWithRetry(_ context.Context, filePath string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.single = append(e.single, filePath)
	return e.text, e.ok
}

func (e *extractorStub) ExtractMany(_ context.Context, filePaths []string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.manyCalls = append(e.manyCalls, filePaths)
	return e.text, e.ok
}

type reportStub struct {
	csvPath string
	csvErr  error
	xlsxErr error

	mu       sync.Mutex
	csvTasks []*model.StudentTask
}

func (r *reportStub) WriteCSV(_ *model.Job, tasks []*model.StudentTask) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.csvTasks = tasks
	return r.csvPath, r.csvErr
}

func (r *reportStub) WriteXLSX(*model.Job, []*model.StudentTask) (string, error) {
	return "", r.xlsxErr
}

// goodContent passes the quality heuristic at any reasonable threshold.
const goodContent = "Laporan praktikum jaringan komputer membahas konfigurasi router " +
	"dan analisis paket menggunakan wireshark pada topologi bus sederhana"

func goodResult() model.ScoringResult {
	return model.ScoringResult{
		StudentID:   "A11202301",
		StudentName: "Budi Santoso",
		Score:       testutil.Ptr(85),
		Evaluation:  "Laporan cukup lengkap.",
	}
}

type fixture struct {
	jobs    *testutil.FakeJobRepo
	tasks   *testutil.FakeTaskRepo
	scorer  *scorerStub
	extract *extractorStub
	reports *reportStub
	svc     *ScoringService
}

func newFixture(job *model.Job, tasks ...*model.StudentTask) *fixture {
	f := &fixture{
		jobs:    testutil.NewFakeJobRepo(),
		tasks:   testutil.NewFakeTaskRepo(tasks...),
		scorer:  &scorerStub{result: goodResult()},
		extract: &extractorStub{text: goodContent, ok: true},
		reports: &reportStub{csvPath: "/results/tester_20260101_100000.csv"},
	}
	f.jobs.Put(job)
	f.svc = NewScoringService(ScoringServiceOptions{
		Jobs:             f.jobs,
		Tasks:            f.tasks,
		Scorer:           f.scorer,
		Extract:          f.extract,
		Reports:          f.reports,
		ScoringConfig:    config.ScoringConfig{MaxWorkers: 2, EvaluationMaxWords: 100},
		ExtractionConfig: config.ExtractionConfig{MinSignalWords: 5},
	})
	return f
}

func TestRun_Success(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().WithTotalFiles(2).Build()
	f := newFixture(job,
		testutil.NewTask().WithID("task-1").WithFilename("laporan_A11202301_Budi.pdf").Build(),
		testutil.NewTask().WithID("task-2").WithFilename("laporan_B22202302_Citra.pdf").
			WithFilePaths("/uploads/laporan_B22202302_Citra.pdf").Build(),
	)

	require.NoError(t, f.svc.Run(context.Background(), job))

	stored := f.jobs.Snapshot("job-1")
	require.NotNil(t, stored)
	assert.Equal(t, model.JobStatusCompleted, stored.Status)
	require.NotNil(t, stored.StatusMessage)
	assert.Equal(t, "Berhasil menilai 2/2 laporan", *stored.StatusMessage)
	require.NotNil(t, stored.ReportPath)
	assert.Equal(t, "/results/tester_20260101_100000.csv", *stored.ReportPath)
	assert.Equal(t, 2, stored.ProcessedFiles)

	task := f.tasks.Snapshot("task-1")
	require.NotNil(t, task)
	assert.Equal(t, model.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.Score)
	assert.Equal(t, 85, *task.Score)
	require.NotNil(t, task.StudentID)
	assert.Equal(t, "A11202301", *task.StudentID)
	assert.Equal(t, "ok", task.OCRStatus)
	assert.Equal(t, len(goodContent), task.ContentLength)
	assert.NotNil(t, task.ProcessedAt)

	assert.Equal(t, 2, f.scorer.calls())
	assert.Len(t, f.reports.csvTasks, 2)
}

func TestRun_UnreadableSubmissionBecomesTaskError(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().Build()
	f := newFixture(job, testutil.NewTask().Build())
	f.extract.text = ""
	f.extract.ok = false

	require.NoError(t, f.svc.Run(context.Background(), job))

	stored := f.jobs.Snapshot("job-1")
	assert.Equal(t, model.JobStatusCompleted, stored.Status)
	assert.Equal(t, "Berhasil menilai 0/1 laporan", *stored.StatusMessage)

	task := f.tasks.Snapshot("task-1")
	assert.Equal(t, model.TaskStatusError, task.Status)
	require.NotNil(t, task.ErrorMessage)
	assert.Equal(t, "Gagal membaca file setelah beberapa percobaan", *task.ErrorMessage)
	assert.Equal(t, "failed", task.OCRStatus)
	require.NotNil(t, task.StudentID)
	assert.Equal(t, model.IdentityError, *task.StudentID)

	assert.Zero(t, f.scorer.calls())
}

func TestRun_LowQualityContentSkipsScoring(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().Build()
	f := newFixture(job, testutil.NewTask().Build())
	f.extract.text = "<!-- image -->\n<!-- image -->"

	require.NoError(t, f.svc.Run(context.Background(), job))

	task := f.tasks.Snapshot("task-1")
	assert.Equal(t, model.TaskStatusError, task.Status)
	assert.Equal(t, "failed", task.OCRStatus)
	require.NotNil(t, task.ErrorMessage)
	assert.Contains(t, *task.ErrorMessage, "Dokumen tidak terbaca")
	assert.Contains(t, task.OCRDetail, "image placeholders")

	assert.Zero(t, f.scorer.calls())
	assert.Equal(t, "Berhasil menilai 0/1 laporan", *f.jobs.Snapshot("job-1").StatusMessage)
}

func TestRun_ScorerErrorPersistedOnTask(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().Build()
	f := newFixture(job, testutil.NewTask().Build())
	f.scorer.result = model.ErrorResult("Gagal menilai setelah 3 percobaan (gemini): quota exceeded")

	require.NoError(t, f.svc.Run(context.Background(), job))

	task := f.tasks.Snapshot("task-1")
	assert.Equal(t, model.TaskStatusError, task.Status)
	require.NotNil(t, task.ErrorMessage)
	assert.Contains(t, *task.ErrorMessage, "Gagal menilai setelah 3 percobaan")
	require.NotNil(t, task.StudentID)
	assert.Equal(t, model.IdentityError, *task.StudentID)
	assert.Nil(t, task.Score)

	// Scoring failures are per-student outcomes; the job still completes.
	assert.Equal(t, model.JobStatusCompleted, f.jobs.Snapshot("job-1").Status)
}

func TestRun_PreflightFailureFailsJobFast(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().Build()
	f := newFixture(job, testutil.NewTask().Build())
	f.scorer.preflightErr = errors.New("API key gemini belum dikonfigurasi")

	err := f.svc.Run(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belum dikonfigurasi")

	stored := f.jobs.Snapshot("job-1")
	assert.Equal(t, model.JobStatusFailed, stored.Status)
	require.NotNil(t, stored.StatusMessage)
	assert.Contains(t, *stored.StatusMessage, "belum dikonfigurasi")

	// No student work started.
	assert.Empty(t, f.extract.single)
	assert.Zero(t, f.scorer.calls())
	assert.Equal(t, model.TaskStatusPending, f.tasks.Snapshot("task-1").Status)
}

func TestRun_PersistenceErrorFailsJob(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().Build()
	f := newFixture(job, testutil.NewTask().Build())
	f.tasks.ApplyErr = errors.New("connection reset")

	err := f.svc.Run(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist task result")
	assert.Equal(t, model.JobStatusFailed, f.jobs.Snapshot("job-1").Status)
}

func TestRun_ReportWriteErrorFailsJob(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().Build()
	f := newFixture(job, testutil.NewTask().Build())
	f.reports.csvErr = errors.New("disk full")

	err := f.svc.Run(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write report")
	assert.Equal(t, model.JobStatusFailed, f.jobs.Snapshot("job-1").Status)
}

func TestRun_XLSXFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().Build()
	f := newFixture(job, testutil.NewTask().Build())
	f.reports.xlsxErr = errors.New("workbook save failed")

	require.NoError(t, f.svc.Run(context.Background(), job))
	assert.Equal(t, model.JobStatusCompleted, f.jobs.Snapshot("job-1").Status)
}

func TestRun_ReferenceMaterialReachesScorer(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().
		WithAnswerKey("/uploads/kunci.pdf").
		WithQuestionText("Jelaskan cara kerja subnetting.").
		Build()
	job.AdditionalNotes = testutil.Ptr("Fokus pada bab analisis.")
	f := newFixture(job, testutil.NewTask().Build())

	require.NoError(t, f.svc.Run(context.Background(), job))

	require.Len(t, f.scorer.inputs, 1)
	in := f.scorer.inputs[0]
	assert.Equal(t, goodContent, in.StudentContent)
	assert.Equal(t, goodContent, in.AnswerKeyContent)
	assert.Contains(t, in.QuestionContent, "Jelaskan cara kerja subnetting.")
	assert.Equal(t, "Fokus pada bab analisis.", in.AdditionalNotes)
	assert.Equal(t, 40, in.ScoreMin)
	assert.Equal(t, 100, in.ScoreMax)
	assert.True(t, in.EnableEvaluation)
	assert.Equal(t, 100, in.MaxWords)
	assert.Equal(t, "laporan_A11202301_Budi.pdf", in.SourceFilename)

	// Answer key was extracted once, student file once.
	assert.Equal(t,
		[]string{"/uploads/kunci.pdf", "/uploads/laporan_A11202301_Budi.pdf"},
		f.extract.single)
}

func TestRun_AnswerKeyExtractionFailureIsTolerated(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().WithAnswerKey("/uploads/kunci.pdf").Build()
	f := newFixture(job, testutil.NewTask().Build())

	// Fail the answer key read, then succeed on the student file.
	calls := 0
	base := f.extract
	f.svc.extract = extractFunc(func(ctx context.Context, path string) (string, bool) {
		calls++
		if calls == 1 {
			return "", false
		}
		return base.ExtractWithRetry(ctx, path)
	})

	require.NoError(t, f.svc.Run(context.Background(), job))

	require.Len(t, f.scorer.inputs, 1)
	assert.Empty(t, f.scorer.inputs[0].AnswerKeyContent)
	assert.Equal(t, model.JobStatusCompleted, f.jobs.Snapshot("job-1").Status)
}

// extractFunc adapts a function to the Extractor interface for one-off stubs.
type extractFunc func(ctx context.Context, filePath string) (string, bool)

func (f extractFunc) ExtractWithRetry(ctx context.Context, filePath string) (string, bool) {
	return f(ctx, filePath)
}

func (f extractFunc) ExtractMany(ctx context.Context, filePaths []string) (string, bool) {
	if len(filePaths) == 0 {
		return "", false
	}
	return f(ctx, filePaths[0])
}

func TestRun_SingleJobUsesMultiFileExtraction(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().WithKind(model.JobKindSingle).Build()
	task := testutil.NewTask().
		WithFilename("Budi Santoso").
		WithFilePaths("/uploads/bab1.pdf", "/uploads/bab2.pdf").
		Build()
	f := newFixture(job, task)

	require.NoError(t, f.svc.Run(context.Background(), job))

	require.Len(t, f.extract.manyCalls, 1)
	assert.Equal(t, []string{"/uploads/bab1.pdf", "/uploads/bab2.pdf"}, f.extract.manyCalls[0])
	assert.Empty(t, f.extract.single)
}

func TestRun_ProgressReachesTerminalSnapshot(t *testing.T) {
	t.Parallel()

	job := testutil.NewJob().Build()
	f := newFixture(job, testutil.NewTask().Build())

	cache := testutil.NewFakeCacheRepo()
	tracker := core.NewProgressTracker(core.ProgressTrackerOptions{
		Jobs:  f.jobs,
		Tasks: f.tasks,
		Cache: cache,
	})
	f.svc.progress = tracker

	require.NoError(t, f.svc.Run(context.Background(), job))

	snap, err := tracker.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, snap.Status)
	assert.Equal(t, "Selesai!", snap.Message)
	assert.Equal(t, 1, snap.Current)
	assert.Equal(t, 1, snap.Total)

	// The snapshot was mirrored into the shared cache under the job key.
	payload, err := cache.Get(context.Background(), "progress:job:job-1")
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
}
