// Package testutil provides testing utilities and helpers for the autoscore
// grading engine.
package testutil

import (
	"time"

	"github.com/aslab/autoscore/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			Owner:            "tester",
			Kind:             model.JobKindBulk,
			ScoreMin:         40,
			ScoreMax:         100,
			EnableEvaluation: true,
			Students: []model.SubmissionInput{
				{DisplayName: "laporan_A11202301_Budi.pdf", FilePaths: []string{"/uploads/laporan_A11202301_Budi.pdf"}},
			},
		},
	}
}

// WithOwner sets the job owner.
func (b *JobRequestBuilder) WithOwner(owner string) *JobRequestBuilder {
	b.req.Owner = owner
	return b
}

// WithKind sets the job kind.
func (b *JobRequestBuilder) WithKind(kind model.JobKind) *JobRequestBuilder {
	b.req.Kind = kind
	return b
}

// WithBounds sets the scoring bounds.
func (b *JobRequestBuilder) WithBounds(minScore, maxScore int) *JobRequestBuilder {
	b.req.ScoreMin = minScore
	b.req.ScoreMax = maxScore
	return b
}

// WithEvaluation toggles textual evaluation generation.
func (b *JobRequestBuilder) WithEvaluation(enabled bool) *JobRequestBuilder {
	b.req.EnableEvaluation = enabled
	return b
}

// WithAnswerKey sets the answer key document path.
func (b *JobRequestBuilder) WithAnswerKey(path string) *JobRequestBuilder {
	b.req.AnswerKeyPath = &path
	return b
}

// WithQuestionDocs sets the question document paths.
func (b *JobRequestBuilder) WithQuestionDocs(paths ...string) *JobRequestBuilder {
	b.req.QuestionDocPaths = paths
	return b
}

// WithQuestionText sets the free-text question material.
func (b *JobRequestBuilder) WithQuestionText(text string) *JobRequestBuilder {
	b.req.QuestionText = &text
	return b
}

// WithNotes sets the grader's additional notes.
func (b *JobRequestBuilder) WithNotes(notes string) *JobRequestBuilder {
	b.req.AdditionalNotes = &notes
	return b
}

// WithStudents replaces the student submissions.
func (b *JobRequestBuilder) WithStudents(students ...model.SubmissionInput) *JobRequestBuilder {
	b.req.Students = students
	return b
}

// WithStudentFiles replaces the submissions with one single-file student per path.
func (b *JobRequestBuilder) WithStudentFiles(paths ...string) *JobRequestBuilder {
	students := make([]model.SubmissionInput, 0, len(paths))
	for _, p := range paths {
		students = append(students, model.SubmissionInput{DisplayName: p, FilePaths: []string{p}})
	}
	b.req.Students = students
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// JobBuilder provides a fluent interface for building Job records for testing.
type JobBuilder struct {
	job *model.Job
}

// NewJob creates a new JobBuilder with sensible defaults: a processing bulk
// job with one file, ready to hand to the orchestrator.
func NewJob() *JobBuilder {
	return &JobBuilder{
		job: &model.Job{
			ID:               "job-1",
			Owner:            "tester",
			Kind:             model.JobKindBulk,
			Status:           model.JobStatusProcessing,
			ScoreMin:         40,
			ScoreMax:         100,
			EnableEvaluation: true,
			TotalFiles:       1,
			CreatedAt:        time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

// WithID sets the job id.
func (b *JobBuilder) WithID(id string) *JobBuilder {
	b.job.ID = id
	return b
}

// WithOwner sets the job owner.
func (b *JobBuilder) WithOwner(owner string) *JobBuilder {
	b.job.Owner = owner
	return b
}

// WithStatus sets the job status.
func (b *JobBuilder) WithStatus(status model.JobStatus) *JobBuilder {
	b.job.Status = status
	return b
}

// WithKind sets the job kind.
func (b *JobBuilder) WithKind(kind model.JobKind) *JobBuilder {
	b.job.Kind = kind
	return b
}

// WithBounds sets the scoring bounds.
func (b *JobBuilder) WithBounds(minScore, maxScore int) *JobBuilder {
	b.job.ScoreMin = minScore
	b.job.ScoreMax = maxScore
	return b
}

// WithEvaluation toggles textual evaluation generation.
func (b *JobBuilder) WithEvaluation(enabled bool) *JobBuilder {
	b.job.EnableEvaluation = enabled
	return b
}

// WithAnswerKey sets the answer key document path.
func (b *JobBuilder) WithAnswerKey(path string) *JobBuilder {
	b.job.AnswerKeyPath = &path
	return b
}

// WithQuestionText sets the free-text question material.
func (b *JobBuilder) WithQuestionText(text string) *JobBuilder {
	b.job.QuestionText = &text
	return b
}

// WithTotalFiles sets the total file count.
func (b *JobBuilder) WithTotalFiles(n int) *JobBuilder {
	b.job.TotalFiles = n
	return b
}

// Build returns the constructed Job.
func (b *JobBuilder) Build() *model.Job {
	return b.job
}

// TaskBuilder provides a fluent interface for building StudentTask records for testing.
type TaskBuilder struct {
	task *model.StudentTask
}

// NewTask creates a new TaskBuilder with sensible defaults: a pending
// single-file task belonging to job-1.
func NewTask() *TaskBuilder {
	return &TaskBuilder{
		task: &model.StudentTask{
			ID:        "task-1",
			JobID:     "job-1",
			Filename:  "laporan_A11202301_Budi.pdf",
			FilePaths: []string{"/uploads/laporan_A11202301_Budi.pdf"},
			Status:    model.TaskStatusPending,
			OCRStatus: "unknown",
			CreatedAt: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

// WithID sets the task id.
func (b *TaskBuilder) WithID(id string) *TaskBuilder {
	b.task.ID = id
	return b
}

// WithJobID sets the owning job id.
func (b *TaskBuilder) WithJobID(jobID string) *TaskBuilder {
	b.task.JobID = jobID
	return b
}

// WithFilename sets the display filename.
func (b *TaskBuilder) WithFilename(name string) *TaskBuilder {
	b.task.Filename = name
	return b
}

// WithFilePaths sets the stored source file paths.
func (b *TaskBuilder) WithFilePaths(paths ...string) *TaskBuilder {
	b.task.FilePaths = paths
	return b
}

// WithStatus sets the task status.
func (b *TaskBuilder) WithStatus(status model.TaskStatus) *TaskBuilder {
	b.task.Status = status
	return b
}

// WithIdentity sets the resolved student identity.
func (b *TaskBuilder) WithIdentity(id, name string) *TaskBuilder {
	b.task.StudentID = &id
	b.task.StudentName = &name
	return b
}

// WithScore sets the task score.
func (b *TaskBuilder) WithScore(score int) *TaskBuilder {
	b.task.Score = &score
	return b
}

// WithEvaluation sets the evaluation text.
func (b *TaskBuilder) WithEvaluation(text string) *TaskBuilder {
	b.task.Evaluation = text
	return b
}

// Build returns the constructed StudentTask.
func (b *TaskBuilder) Build() *model.StudentTask {
	return b.task
}

// Ptr returns a pointer to v. Convenience for optional fields in test fixtures.
func Ptr[T any](v T) *T {
	return &v
}
