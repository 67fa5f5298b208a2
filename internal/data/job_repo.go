// Package data provides PostgreSQL and Redis implementations of the core ports.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/aslab/autoscore/internal/errors"

	"github.com/aslab/autoscore/internal/data/pgxutil"
	"github.com/aslab/autoscore/internal/domain/model"
)

// ErrJobNotFound is returned when a job is not found.
var ErrJobNotFound = errors.New("job not found")

// RepoConfig holds configuration options shared by the repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for grading jobs.
type JobRepo struct {
	DB    *sql.DB
	clock TimeProvider
}

// NewJobRepo creates a JobRepo with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	return &JobRepo{DB: db, clock: tp}
}

const jobColumns = `
  id,
  owner,
  kind,
  status,
  score_min,
  score_max,
  enable_evaluation,
  answer_key_path,
  question_doc_paths,
  question_text,
  additional_notes,
  total_files,
  processed_files,
  status_message,
  report_path,
  created_at,
  started_at,
  completed_at
`

type jobRowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row jobRowScanner) (*model.Job, error) {
	var (
		job       model.Job
		docPaths  []byte
		answerKey sql.NullString
		question  sql.NullString
		notes     sql.NullString
		message   sql.NullString
		report    sql.NullString
		started   sql.NullTime
		completed sql.NullTime
	)
	if err := row.Scan(
		&job.ID,
		&job.Owner,
		&job.Kind,
		&job.Status,
		&job.ScoreMin,
		&job.ScoreMax,
		&job.EnableEvaluation,
		&answerKey,
		&docPaths,
		&question,
		&notes,
		&job.TotalFiles,
		&job.ProcessedFiles,
		&message,
		&report,
		&job.CreatedAt,
		&started,
		&completed,
	); err != nil {
		return nil, err
	}

	if len(docPaths) > 0 {
		if err := json.Unmarshal(docPaths, &job.QuestionDocPaths); err != nil {
			return nil, fmt.Errorf("decode question_doc_paths: %w", err)
		}
	}
	job.AnswerKeyPath = nullableString(answerKey)
	job.QuestionText = nullableString(question)
	job.AdditionalNotes = nullableString(notes)
	job.StatusMessage = nullableString(message)
	job.ReportPath = nullableString(report)
	job.StartedAt = nullableTime(started)
	job.CompletedAt = nullableTime(completed)
	return &job, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullableTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// Create inserts a job and one pending StudentTask per submission in a single
// transaction, so a job is never observable without its task rows.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job request")
	}

	docPaths, err := json.Marshal(req.QuestionDocPaths)
	if err != nil {
		return nil, fmt.Errorf("encode question_doc_paths: %w", err)
	}

	var job *model.Job
	txErr := pgxutil.WithTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx *sql.Tx) error {
			row := tx.QueryRowContext(ctx, `
				INSERT INTO jobs (
					id, owner, kind, score_min, score_max, enable_evaluation,
					answer_key_path, question_doc_paths, question_text,
					additional_notes, total_files, created_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				RETURNING `+jobColumns,
				uuid.NewString(),
				req.Owner,
				req.Kind,
				req.ScoreMin,
				req.ScoreMax,
				req.EnableEvaluation,
				req.AnswerKeyPath,
				docPaths,
				req.QuestionText,
				req.AdditionalNotes,
				len(req.Students),
				r.clock.Now(),
			)

			created, scanErr := scanJob(row)
			if scanErr != nil {
				return fmt.Errorf("insert job: %w", apperrors.MapDBError(scanErr))
			}

			for _, s := range req.Students {
				paths, mErr := json.Marshal(s.FilePaths)
				if mErr != nil {
					return fmt.Errorf("encode file_paths: %w", mErr)
				}
				if _, iErr := tx.ExecContext(ctx, `
					INSERT INTO student_tasks (id, job_id, filename, file_paths, created_at)
					VALUES ($1, $2, $3, $4, $5)`,
					uuid.NewString(), created.ID, s.DisplayName, paths, r.clock.Now(),
				); iErr != nil {
					return fmt.Errorf("insert student task: %w", apperrors.MapDBError(iErr))
				}
			}

			job = created
			return nil
		},
	})
	if txErr != nil {
		return nil, txErr
	}
	return job, nil
}

// GetByID returns a job by id.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(ErrJobNotFound, apperrors.ErrCodeNotFound, "job "+id)
		}
		return nil, fmt.Errorf("get job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// ReserveNext atomically claims the oldest pending job and flips it to
// processing. SKIP LOCKED keeps concurrent runners from claiming the same row.
func (r *JobRepo) ReserveNext(ctx context.Context) (*model.Job, error) {
	now := r.clock.Now()
	row := r.DB.QueryRowContext(ctx, `
		WITH cte AS (
			SELECT id FROM jobs
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE jobs j
		SET status = 'processing',
		    started_at = COALESCE(j.started_at, $1)
		FROM cte
		WHERE j.id = cte.id
		RETURNING `+qualifiedJobColumns("j"), now)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("reserve job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// MarkCompleted finalizes a processing job with a summary message and report
// path. Terminal states are absorbing: a job already completed or failed is
// left untouched.
func (r *JobRepo) MarkCompleted(ctx context.Context, id, message, reportPath string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'completed',
		    status_message = $2,
		    report_path = $3,
		    completed_at = $4
		WHERE id = $1 AND status = 'processing'`,
		id, message, reportPath, r.clock.Now())
	if err != nil {
		return fmt.Errorf("complete job: %w", apperrors.MapDBError(err))
	}
	return requireRowAffected(res, id)
}

// MarkFailed finalizes a job with a failure message. Legal from pending or
// processing.
func (r *JobRepo) MarkFailed(ctx context.Context, id, message string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'failed',
		    status_message = $2,
		    completed_at = $3
		WHERE id = $1 AND status IN ('pending', 'processing')`,
		id, message, r.clock.Now())
	if err != nil {
		return fmt.Errorf("fail job: %w", apperrors.MapDBError(err))
	}
	return requireRowAffected(res, id)
}

// IncrementProcessed bumps processed_files by one, capped at total_files so
// the counter stays monotonic and bounded even under a duplicated update.
func (r *JobRepo) IncrementProcessed(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET processed_files = LEAST(processed_files + 1, total_files)
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment processed: %w", apperrors.MapDBError(err))
	}
	return requireRowAffected(res, id)
}

// Delete removes a job; student tasks cascade.
func (r *JobRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", apperrors.MapDBError(err))
	}
	return requireRowAffected(res, id)
}

// Stats returns counts of jobs per status.
func (r *JobRepo) Stats(ctx context.Context) (model.JobStats, error) {
	var stats model.JobStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM jobs`).Scan(&stats.Pending, &stats.Processing, &stats.Completed, &stats.Failed)
	if err != nil {
		return model.JobStats{}, fmt.Errorf("job stats: %w", apperrors.MapDBError(err))
	}
	return stats, nil
}

func requireRowAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.Wrap(ErrJobNotFound, apperrors.ErrCodeNotFound, "job "+id)
	}
	return nil
}

func qualifiedJobColumns(alias string) string {
	return alias + `.id, ` + alias + `.owner, ` + alias + `.kind, ` + alias + `.status, ` +
		alias + `.score_min, ` + alias + `.score_max, ` + alias + `.enable_evaluation, ` +
		alias + `.answer_key_path, ` + alias + `.question_doc_paths, ` + alias + `.question_text, ` +
		alias + `.additional_notes, ` + alias + `.total_files, ` + alias + `.processed_files, ` +
		alias + `.status_message, ` + alias + `.report_path, ` + alias + `.created_at, ` +
		alias + `.started_at, ` + alias + `.completed_at`
}
