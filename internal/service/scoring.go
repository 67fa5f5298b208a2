// Package service contains the job orchestrator that drives a grading run
// from reservation to report.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/aslab/autoscore/config"
	"github.com/aslab/autoscore/internal/core"
	"github.com/aslab/autoscore/internal/domain/model"
	"github.com/aslab/autoscore/internal/extract"
	"github.com/aslab/autoscore/internal/llm"
)

// Progress messages shown to graders while a job runs.
const (
	msgReading         = "Membaca laporan..."
	msgReadingAnswer   = "Membaca kunci jawaban..."
	msgScoringProgress = "Menilai laporan %d dari %d..."
	msgGenerating      = "Menyusun hasil..."
	msgCompleted       = "Selesai!"
	msgFailed          = "Terjadi kesalahan: %s"
)

// Scorer is the per-submission scoring dependency, satisfied by llm.Facade.
type Scorer interface {
	ScoreReport(ctx context.Context, in llm.ScoreReportInput) model.ScoringResult
	Preflight(ctx context.Context) error
}

// Extractor is the document extraction dependency, satisfied by
// extract.Client.
type Extractor interface {
	ExtractWithRetry(ctx context.Context, filePath string) (string, bool)
	ExtractMany(ctx context.Context, filePaths []string) (string, bool)
}

// ReportWriter renders the job's result artifacts, satisfied by
// report.Generator.
type ReportWriter interface {
	WriteCSV(job *model.Job, tasks []*model.StudentTask) (string, error)
	WriteXLSX(job *model.Job, tasks []*model.StudentTask) (string, error)
}

// ScoringService runs grading jobs: it extracts reference material, fans the
// student tasks out over a bounded worker pool, persists each outcome as it
// completes, and finalizes the job with a report artifact.
type ScoringService struct {
	jobs     core.JobRepository
	tasks    core.StudentTaskRepository
	scorer   Scorer
	extract  Extractor
	reports  ReportWriter
	progress *core.ProgressTracker

	scoringCfg config.ScoringConfig
	extractCfg config.ExtractionConfig
	logger     *slog.Logger
}

// ScoringServiceOptions wires a ScoringService.
type ScoringServiceOptions struct {
	Jobs     core.JobRepository
	Tasks    core.StudentTaskRepository
	Scorer   Scorer
	Extract  Extractor
	Reports  ReportWriter
	Progress *core.ProgressTracker

	ScoringConfig    config.ScoringConfig
	ExtractionConfig config.ExtractionConfig
	Logger           *slog.Logger
}

// NewScoringService creates a ScoringService.
func NewScoringService(opts ScoringServiceOptions) *ScoringService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoringService{
		jobs:       opts.Jobs,
		tasks:      opts.Tasks,
		scorer:     opts.Scorer,
		extract:    opts.Extract,
		reports:    opts.Reports,
		progress:   opts.Progress,
		scoringCfg: opts.ScoringConfig,
		extractCfg: opts.ExtractionConfig,
		logger:     logger.With("component", "scoring"),
	}
}

// referenceMaterial is the job-level context shared read-only by all workers.
type referenceMaterial struct {
	answerKey string
	question  string
}

// Run executes one grading job that has already been reserved (status
// processing). Per-student failures are recorded on their task and never
// fail the job; only infrastructure errors escaping the task boundary do.
func (s *ScoringService) Run(ctx context.Context, job *model.Job) error {
	start := time.Now()
	logger := s.logger.With("job_id", job.ID)
	logger.Info("job started", "total_files", job.TotalFiles, "kind", job.Kind)

	tasks, err := s.tasks.ListByJob(ctx, job.ID)
	if err != nil {
		return s.fail(ctx, job, fmt.Errorf("load tasks: %w", err))
	}
	total := len(tasks)
	s.updateProgress(ctx, job.ID, model.JobStatusProcessing, msgReading, 0, total)

	// A provider with no usable credential fails the job before any student
	// work begins.
	if err := s.scorer.Preflight(ctx); err != nil {
		return s.fail(ctx, job, err)
	}

	refs := s.extractReferences(ctx, job, total)

	succeeded, runErr := s.runTasks(ctx, job, tasks, refs)
	if runErr != nil {
		return s.fail(ctx, job, runErr)
	}

	s.updateProgress(ctx, job.ID, model.JobStatusProcessing, msgGenerating, total, total)

	finalTasks, err := s.tasks.ListByJob(ctx, job.ID)
	if err != nil {
		return s.fail(ctx, job, fmt.Errorf("reload tasks for report: %w", err))
	}
	csvPath, err := s.reports.WriteCSV(job, finalTasks)
	if err != nil {
		return s.fail(ctx, job, fmt.Errorf("write report: %w", err))
	}
	if _, err := s.reports.WriteXLSX(job, finalTasks); err != nil {
		// The CSV is the canonical artifact; a failed workbook is not fatal.
		logger.Warn("xlsx report failed", "error", err)
	}

	message := fmt.Sprintf("Berhasil menilai %d/%d laporan", succeeded, total)
	if err := s.jobs.MarkCompleted(ctx, job.ID, message, csvPath); err != nil {
		return s.fail(ctx, job, fmt.Errorf("mark completed: %w", err))
	}
	s.updateProgress(ctx, job.ID, model.JobStatusCompleted, msgCompleted, total, total)

	logger.Info("job completed",
		"succeeded", succeeded,
		"total", total,
		"elapsed", time.Since(start))
	return nil
}

// extractReferences reads the answer key and question material. Both are
// tolerant of failure: scoring proceeds with whatever references exist.
func (s *ScoringService) extractReferences(ctx context.Context, job *model.Job, total int) referenceMaterial {
	logger := s.logger.With("job_id", job.ID)
	var refs referenceMaterial

	if job.AnswerKeyPath != nil && *job.AnswerKeyPath != "" {
		s.updateProgress(ctx, job.ID, model.JobStatusProcessing, msgReadingAnswer, 0, total)
		text, ok := s.extract.ExtractWithRetry(ctx, *job.AnswerKeyPath)
		if ok {
			refs.answerKey = text
			logger.Info("answer key extracted", "chars", len(text))
		} else {
			logger.Warn("answer key extraction failed, scoring without it")
		}
	}

	var questionParts []string
	if len(job.QuestionDocPaths) > 0 {
		if text, ok := s.extract.ExtractMany(ctx, job.QuestionDocPaths); ok {
			questionParts = append(questionParts, text)
		} else {
			logger.Warn("question material extraction failed, scoring without it")
		}
	}
	if job.QuestionText != nil && strings.TrimSpace(*job.QuestionText) != "" {
		questionParts = append(questionParts, *job.QuestionText)
	}
	refs.question = strings.Join(questionParts, "\n\n")

	return refs
}

// runTasks fans the student tasks out over a semaphore-bounded pool and
// persists outcomes in completion order. The returned error is fatal for the
// job; per-task errors are folded into their task records.
func (s *ScoringService) runTasks(
	ctx context.Context,
	job *model.Job,
	tasks []*model.StudentTask,
	refs referenceMaterial,
) (int, error) {
	total := len(tasks)
	workers := int64(s.scoringCfg.MaxWorkers)
	sem := semaphore.NewWeighted(workers)
	// Buffered to task count so workers never block on send, even when the
	// consumer bails out early on a persistence error.
	results := make(chan core.ApplyTaskResultParams, total)

	for _, task := range tasks {
		go func(task *model.StudentTask) {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- errorOutcome(task.ID, fmt.Sprintf("worker canceled: %v", err))
				return
			}
			defer sem.Release(1)
			results <- s.processTask(ctx, job, task, refs)
		}(task)
	}

	succeeded := 0
	for done := 1; done <= total; done++ {
		outcome := <-results

		if err := s.tasks.ApplyResult(ctx, outcome); err != nil {
			return succeeded, fmt.Errorf("persist task result: %w", err)
		}
		if err := s.jobs.IncrementProcessed(ctx, job.ID); err != nil {
			return succeeded, fmt.Errorf("increment processed count: %w", err)
		}
		if outcome.Status == model.TaskStatusCompleted {
			succeeded++
		}
		s.updateProgress(ctx, job.ID, model.JobStatusProcessing,
			fmt.Sprintf(msgScoringProgress, done, total), done, total)
	}

	return succeeded, nil
}

// processTask handles one student: extract, judge extraction quality, score,
// attach timings. A panic inside the unit is converted into an error outcome
// so one bad submission cannot take the job down.
func (s *ScoringService) processTask(
	ctx context.Context,
	job *model.Job,
	task *model.StudentTask,
	refs referenceMaterial,
) (outcome core.ApplyTaskResultParams) {
	logger := s.logger.With("job_id", job.ID, "file", task.Filename)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker panic", "panic", r)
			outcome = errorOutcome(task.ID, fmt.Sprintf("worker panic: %v", r))
		}
	}()

	extractStart := time.Now()
	content, ok := s.extractStudentContent(ctx, job, task)
	extractMillis := time.Since(extractStart).Milliseconds()

	if !ok {
		logger.Warn("submission unreadable after retries")
		out := errorOutcome(task.ID, "Gagal membaca file setelah beberapa percobaan")
		out.OCRStatus = extract.QualityFailed
		out.OCRDetail = "file could not be extracted"
		out.ExtractMillis = extractMillis
		return out
	}

	quality := extract.JudgeQuality(content, s.extractCfg.MinSignalWords)
	if !quality.Succeeded() {
		logger.Warn("extraction quality check failed", "detail", quality.Detail)
		out := errorOutcome(task.ID, "Dokumen tidak terbaca: "+quality.Detail)
		out.OCRStatus = quality.Label
		out.OCRDetail = quality.Detail
		out.ExtractMillis = extractMillis
		out.ContentLength = len(content)
		return out
	}

	scoreStart := time.Now()
	result := s.scorer.ScoreReport(ctx, llm.ScoreReportInput{
		StudentContent:   content,
		AnswerKeyContent: refs.answerKey,
		QuestionContent:  refs.question,
		AdditionalNotes:  deref(job.AdditionalNotes),
		ScoreMin:         job.ScoreMin,
		ScoreMax:         job.ScoreMax,
		EnableEvaluation: job.EnableEvaluation,
		MaxWords:         s.scoringCfg.EvaluationMaxWords,
		SourceFilename:   task.Filename,
	})
	scoreMillis := time.Since(scoreStart).Milliseconds()

	status := model.TaskStatusCompleted
	var errorMessage *string
	if result.Error {
		status = model.TaskStatusError
		errorMessage = ptr(result.Evaluation)
		logger.Warn("scoring failed", "error", result.Evaluation)
	} else {
		logger.Info("scoring done",
			"student_id", result.StudentID,
			"score", result.Score,
			"extract_ms", extractMillis,
			"score_ms", scoreMillis)
	}

	return core.ApplyTaskResultParams{
		TaskID:        task.ID,
		StudentID:     ptr(result.StudentID),
		StudentName:   ptr(result.StudentName),
		Score:         result.Score,
		Evaluation:    result.Evaluation,
		OCRStatus:     quality.Label,
		OCRDetail:     quality.Detail,
		Status:        status,
		ErrorMessage:  errorMessage,
		ExtractMillis: extractMillis,
		ScoreMillis:   scoreMillis,
		ContentLength: len(content),
	}
}

// extractStudentContent reads the task's files: one file for bulk jobs, a
// concatenation for single jobs with multiple files.
func (s *ScoringService) extractStudentContent(ctx context.Context, job *model.Job, task *model.StudentTask) (string, bool) {
	if job.Kind == model.JobKindBulk && len(task.FilePaths) == 1 {
		return s.extract.ExtractWithRetry(ctx, task.FilePaths[0])
	}
	return s.extract.ExtractMany(ctx, task.FilePaths)
}

// fail finalizes the job as failed and mirrors the failure into the progress
// snapshot. The original error is returned for the runner's log.
func (s *ScoringService) fail(ctx context.Context, job *model.Job, cause error) error {
	s.logger.Error("job failed", "job_id", job.ID, "error", cause)

	if err := s.jobs.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		s.logger.Error("failed to persist job failure", "job_id", job.ID, "error", err)
	}
	s.updateProgress(ctx, job.ID, model.JobStatusFailed,
		fmt.Sprintf(msgFailed, cause.Error()), 0, 0)
	return cause
}

func (s *ScoringService) updateProgress(ctx context.Context, jobID string, status model.JobStatus, message string, current, total int) {
	if s.progress == nil {
		return
	}
	s.progress.Update(ctx, jobID, model.NewProgressSnapshot(status, message, current, total))
}

func errorOutcome(taskID, message string) core.ApplyTaskResultParams {
	return core.ApplyTaskResultParams{
		TaskID:       taskID,
		StudentID:    ptr(model.IdentityError),
		StudentName:  ptr(model.IdentityError),
		Evaluation:   message,
		OCRStatus:    extract.QualityUnknown,
		Status:       model.TaskStatusError,
		ErrorMessage: ptr(message),
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func ptr[T any](v T) *T {
	return &v
}
