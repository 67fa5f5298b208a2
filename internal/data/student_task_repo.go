package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aslab/autoscore/internal/core"
	apperrors "github.com/aslab/autoscore/internal/errors"

	"github.com/aslab/autoscore/internal/domain/model"
)

// ErrTaskNotFound is returned when a student task is not found.
var ErrTaskNotFound = errors.New("student task not found")

// StudentTaskRepo provides database operations for per-student grading tasks.
type StudentTaskRepo struct {
	DB    *sql.DB
	clock TimeProvider
}

// NewStudentTaskRepo creates a StudentTaskRepo with the given database connection.
func NewStudentTaskRepo(db *sql.DB, cfg RepoConfig) *StudentTaskRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	return &StudentTaskRepo{DB: db, clock: tp}
}

const taskColumns = `
  id,
  job_id,
  filename,
  file_paths,
  student_id,
  student_name,
  score,
  evaluation,
  ocr_status,
  ocr_detail,
  status,
  error_message,
  extract_ms,
  score_ms,
  content_length,
  created_at,
  processed_at
`

func scanTask(row jobRowScanner) (*model.StudentTask, error) {
	var (
		task      model.StudentTask
		filePaths []byte
		studentID sql.NullString
		name      sql.NullString
		score     sql.NullInt64
		errMsg    sql.NullString
		processed sql.NullTime
	)
	if err := row.Scan(
		&task.ID,
		&task.JobID,
		&task.Filename,
		&filePaths,
		&studentID,
		&name,
		&score,
		&task.Evaluation,
		&task.OCRStatus,
		&task.OCRDetail,
		&task.Status,
		&errMsg,
		&task.ExtractMillis,
		&task.ScoreMillis,
		&task.ContentLength,
		&task.CreatedAt,
		&processed,
	); err != nil {
		return nil, err
	}

	if len(filePaths) > 0 {
		if err := json.Unmarshal(filePaths, &task.FilePaths); err != nil {
			return nil, fmt.Errorf("decode file_paths: %w", err)
		}
	}
	task.StudentID = nullableString(studentID)
	task.StudentName = nullableString(name)
	if score.Valid {
		v := int(score.Int64)
		task.Score = &v
	}
	task.ErrorMessage = nullableString(errMsg)
	task.ProcessedAt = nullableTime(processed)
	return &task, nil
}

// ListByJob returns a job's tasks ordered by filename. The stable order is
// what keeps the report deterministic regardless of worker completion order.
func (r *StudentTaskRepo) ListByJob(ctx context.Context, jobID string) ([]*model.StudentTask, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM student_tasks WHERE job_id = $1 ORDER BY filename ASC, id ASC`,
		jobID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var tasks []*model.StudentTask
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan task: %w", scanErr)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", apperrors.MapDBError(err))
	}
	return tasks, nil
}

// ApplyResult records a task's terminal outcome. Each worker owns a disjoint
// task row, so a plain UPDATE is race-free; last writer wins by design of the
// pool, which dispatches each task exactly once.
func (r *StudentTaskRepo) ApplyResult(ctx context.Context, params core.ApplyTaskResultParams) error {
	if !params.Status.Valid() {
		return apperrors.Validationf("invalid task status %q", params.Status)
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE student_tasks
		SET student_id = $2,
		    student_name = $3,
		    score = $4,
		    evaluation = $5,
		    ocr_status = $6,
		    ocr_detail = $7,
		    status = $8,
		    error_message = $9,
		    extract_ms = $10,
		    score_ms = $11,
		    content_length = $12,
		    processed_at = $13
		WHERE id = $1`,
		params.TaskID,
		params.StudentID,
		params.StudentName,
		params.Score,
		params.Evaluation,
		params.OCRStatus,
		params.OCRDetail,
		params.Status,
		params.ErrorMessage,
		params.ExtractMillis,
		params.ScoreMillis,
		params.ContentLength,
		r.clock.Now(),
	)
	if err != nil {
		return fmt.Errorf("apply task result: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.Wrap(ErrTaskNotFound, apperrors.ErrCodeNotFound, "task "+params.TaskID)
	}
	return nil
}

// CountByJob returns per-status task counts for a job.
func (r *StudentTaskRepo) CountByJob(ctx context.Context, jobID string) (model.TaskCounts, error) {
	var counts model.TaskCounts
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'error')
		FROM student_tasks
		WHERE job_id = $1`, jobID).
		Scan(&counts.Total, &counts.Pending, &counts.Completed, &counts.Error)
	if err != nil {
		return model.TaskCounts{}, fmt.Errorf("count tasks: %w", apperrors.MapDBError(err))
	}
	return counts, nil
}
