// Package model defines the core data types for the autoscore grading engine.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobKind describes how student submissions map to files within a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobKind string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobKindBulk is one uploaded file per student.
	JobKindBulk JobKind = "bulk"
	// JobKindSingle is one or more files per named student.
	JobKindSingle JobKind = "single"

	// JobStatusPending indicates a job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates a job is currently being processed.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates a job has finished.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job aborted before all students were processed.
	JobStatusFailed JobStatus = "failed"
)

// ErrNoJobsAvailable is returned when no pending jobs are available for reservation.
var ErrNoJobsAvailable = errors.New("no jobs available")

// UnmarshalText implements encoding.TextUnmarshaler for JobKind to allow env parsing.
func (k *JobKind) UnmarshalText(text []byte) error {
	v := JobKind(strings.ToLower(strings.TrimSpace(string(text))))
	if v.Valid() {
		*k = v
		return nil
	}
	return fmt.Errorf("invalid JobKind: %q", string(text))
}

// Valid returns true if the JobKind is valid.
func (k JobKind) Valid() bool {
	return k == JobKindBulk || k == JobKindSingle
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusProcessing ||
		s == JobStatusCompleted || s == JobStatusFailed
}

// Terminal returns true if the status is absorbing (no further transitions).
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition. Status transitions are one-directional: pending → processing →
// {completed, failed}.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// Job represents one grading run over a batch of student submissions.
type Job struct {
	ID     string    `json:"id"     db:"id"`
	Owner  string    `json:"owner"  db:"owner"`
	Kind   JobKind   `json:"kind"   db:"kind"`
	Status JobStatus `json:"status" db:"status"`

	// Scoring bounds and evaluation settings.
	ScoreMin         int  `json:"score_min"         db:"score_min"`
	ScoreMax         int  `json:"score_max"         db:"score_max"`
	EnableEvaluation bool `json:"enable_evaluation" db:"enable_evaluation"`

	// Reference material. AnswerKeyPath and QuestionDocPaths are document
	// sources; QuestionText is free text supplied directly by the grader.
	AnswerKeyPath    *string  `json:"answer_key_path,omitempty" db:"answer_key_path"`
	QuestionDocPaths []string `json:"question_doc_paths,omitempty" db:"question_doc_paths"`
	QuestionText     *string  `json:"question_text,omitempty" db:"question_text"`
	AdditionalNotes  *string  `json:"additional_notes,omitempty" db:"additional_notes"`

	// Progress counters. ProcessedFiles only increases and never exceeds TotalFiles.
	TotalFiles     int `json:"total_files"     db:"total_files"`
	ProcessedFiles int `json:"processed_files" db:"processed_files"`

	StatusMessage *string `json:"status_message,omitempty" db:"status_message"`
	ReportPath    *string `json:"report_path,omitempty"    db:"report_path"`

	CreatedAt   time.Time  `json:"created_at"             db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"   db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// SubmissionInput describes one student's submission at job creation time.
type SubmissionInput struct {
	DisplayName string   `json:"display_name"`
	FilePaths   []string `json:"file_paths"`
}

// CreateJobRequest represents a request to create a new grading job.
type CreateJobRequest struct {
	Owner            string            `json:"owner"`
	Kind             JobKind           `json:"kind"`
	ScoreMin         int               `json:"score_min"`
	ScoreMax         int               `json:"score_max"`
	EnableEvaluation bool              `json:"enable_evaluation"`
	AnswerKeyPath    *string           `json:"answer_key_path,omitempty"`
	QuestionDocPaths []string          `json:"question_doc_paths,omitempty"`
	QuestionText     *string           `json:"question_text,omitempty"`
	AdditionalNotes  *string           `json:"additional_notes,omitempty"`
	Students         []SubmissionInput `json:"students"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.Owner) == "" {
		return errors.New("owner is required")
	}
	if !r.Kind.Valid() {
		return errors.New("invalid job kind")
	}
	if r.ScoreMin < 0 || r.ScoreMin > 100 || r.ScoreMax < 0 || r.ScoreMax > 100 {
		return errors.New("score bounds must be between 0 and 100")
	}
	if r.ScoreMin >= r.ScoreMax {
		return errors.New("score_min must be less than score_max")
	}
	if len(r.Students) == 0 {
		return errors.New("at least one student submission is required")
	}
	for i, s := range r.Students {
		if len(s.FilePaths) == 0 {
			return fmt.Errorf("student %d has no files", i)
		}
		if r.Kind == JobKindBulk && len(s.FilePaths) != 1 {
			return fmt.Errorf("bulk jobs require exactly one file per student, got %d", len(s.FilePaths))
		}
	}
	return nil
}

// JobStats represents counts of jobs in each state.
type JobStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
