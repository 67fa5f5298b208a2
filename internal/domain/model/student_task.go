package model

import "time"

// TaskStatus represents the lifecycle state of a StudentTask.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not been processed yet.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusCompleted indicates the task was scored successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusError indicates the task failed (unreadable file, provider
	// exhaustion, or a worker-level error).
	TaskStatusError TaskStatus = "error"
)

// Valid returns true if the TaskStatus is valid.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s == TaskStatusCompleted || s == TaskStatusError
}

// StudentTask is one student's unit of work within a Job. Tasks are created
// pending at job submission time and mutated exactly once by the worker that
// processes them.
type StudentTask struct {
	ID    string `json:"id"     db:"id"`
	JobID string `json:"job_id" db:"job_id"`

	// Filename is the originating display filename; FilePaths are the stored
	// source files (one for bulk jobs, one or more for single jobs).
	Filename  string   `json:"filename"   db:"filename"`
	FilePaths []string `json:"file_paths" db:"file_paths"`

	StudentID   *string `json:"student_id,omitempty"   db:"student_id"`
	StudentName *string `json:"student_name,omitempty" db:"student_name"`
	Score       *int    `json:"score,omitempty"        db:"score"`
	Evaluation  string  `json:"evaluation"             db:"evaluation"`

	OCRStatus string `json:"ocr_status" db:"ocr_status"`
	OCRDetail string `json:"ocr_detail" db:"ocr_detail"`

	Status       TaskStatus `json:"status"                  db:"status"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`

	// Timing diagnostics recorded by the worker.
	ExtractMillis int64 `json:"extract_ms"     db:"extract_ms"`
	ScoreMillis   int64 `json:"score_ms"       db:"score_ms"`
	ContentLength int   `json:"content_length" db:"content_length"`

	CreatedAt   time.Time  `json:"created_at"             db:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// TaskCounts holds per-status counts of a job's student tasks.
type TaskCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Error     int `json:"error"`
}

// Processed returns the number of tasks that have reached a terminal state.
func (c TaskCounts) Processed() int {
	return c.Completed + c.Error
}
