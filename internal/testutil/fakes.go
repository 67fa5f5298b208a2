package testutil

// Hand-written in-memory doubles for the core ports. These carry just enough
// state machine behavior for orchestrator and runner tests without a database.

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aslab/autoscore/internal/core"
	"github.com/aslab/autoscore/internal/domain/model"
)

// Ensure compile-time conformance to the core ports.
var (
	_ core.JobRepository         = (*FakeJobRepo)(nil)
	_ core.StudentTaskRepository = (*FakeTaskRepo)(nil)
	_ core.SettingsRepository    = (*FakeSettingsRepo)(nil)
	_ core.CacheRepository       = (*FakeCacheRepo)(nil)
)

// FakeJobRepo is an in-memory JobRepository that enforces the one-directional
// status machine the real repo enforces in SQL.
type FakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
	seq  int

	// Err, when set, is returned by every method. For failure-path tests.
	Err error
}

// NewFakeJobRepo creates an empty FakeJobRepo.
func NewFakeJobRepo() *FakeJobRepo {
	return &FakeJobRepo{jobs: make(map[string]*model.Job)}
}

// Put seeds a job directly, bypassing validation.
func (f *FakeJobRepo) Put(job *model.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
}

// Snapshot returns a copy of a stored job, or nil.
func (f *FakeJobRepo) Snapshot(id string) *model.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil
	}
	cp := *job
	return &cp
}

// Create inserts a pending job. The fake does not materialize student tasks;
// seed a FakeTaskRepo separately.
func (f *FakeJobRepo) Create(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	job := &model.Job{
		ID:               fmt.Sprintf("job-%d", f.seq),
		Owner:            req.Owner,
		Kind:             req.Kind,
		Status:           model.JobStatusPending,
		ScoreMin:         req.ScoreMin,
		ScoreMax:         req.ScoreMax,
		EnableEvaluation: req.EnableEvaluation,
		AnswerKeyPath:    req.AnswerKeyPath,
		QuestionDocPaths: req.QuestionDocPaths,
		QuestionText:     req.QuestionText,
		AdditionalNotes:  req.AdditionalNotes,
		TotalFiles:       len(req.Students),
		CreatedAt:        time.Now(),
	}
	f.jobs[job.ID] = job
	cp := *job
	return &cp, nil
}

// GetByID returns a copy of the stored job.
func (f *FakeJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

// ReserveNext claims the oldest pending job, marking it processing.
func (f *FakeJobRepo) ReserveNext(_ context.Context) (*model.Job, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *model.Job
	for _, job := range f.jobs {
		if job.Status != model.JobStatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, model.ErrNoJobsAvailable
	}
	oldest.Status = model.JobStatusProcessing
	now := time.Now()
	if oldest.StartedAt == nil {
		oldest.StartedAt = &now
	}
	cp := *oldest
	return &cp, nil
}

// MarkCompleted finalizes a processing job.
func (f *FakeJobRepo) MarkCompleted(_ context.Context, id, message, reportPath string) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != model.JobStatusProcessing {
		return fmt.Errorf("job %s is not processing", id)
	}
	now := time.Now()
	job.Status = model.JobStatusCompleted
	job.StatusMessage = &message
	job.ReportPath = &reportPath
	job.CompletedAt = &now
	return nil
}

// MarkFailed finalizes a pending or processing job.
func (f *FakeJobRepo) MarkFailed(_ context.Context, id, message string) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return fmt.Errorf("job %s is not active", id)
	}
	now := time.Now()
	job.Status = model.JobStatusFailed
	job.StatusMessage = &message
	job.CompletedAt = &now
	return nil
}

// IncrementProcessed bumps the processed counter, capped at total.
func (f *FakeJobRepo) IncrementProcessed(_ context.Context, id string) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if job.ProcessedFiles < job.TotalFiles {
		job.ProcessedFiles++
	}
	return nil
}

// Delete removes a job.
func (f *FakeJobRepo) Delete(_ context.Context, id string) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
	return nil
}

// Stats counts jobs per status.
func (f *FakeJobRepo) Stats(_ context.Context) (model.JobStats, error) {
	if f.Err != nil {
		return model.JobStats{}, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats model.JobStats
	for _, job := range f.jobs {
		switch job.Status {
		case model.JobStatusPending:
			stats.Pending++
		case model.JobStatusProcessing:
			stats.Processing++
		case model.JobStatusCompleted:
			stats.Completed++
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// FakeTaskRepo is an in-memory StudentTaskRepository.
type FakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*model.StudentTask

	// ApplyErr, when set, is returned by ApplyResult. For failure-path tests.
	ApplyErr error

	// AppliedOrder records task ids in the order ApplyResult was called.
	AppliedOrder []string
}

// NewFakeTaskRepo creates a FakeTaskRepo seeded with the given tasks.
func NewFakeTaskRepo(tasks ...*model.StudentTask) *FakeTaskRepo {
	f := &FakeTaskRepo{tasks: make(map[string]*model.StudentTask)}
	for _, task := range tasks {
		cp := *task
		f.tasks[task.ID] = &cp
	}
	return f
}

// Snapshot returns a copy of a stored task, or nil.
func (f *FakeTaskRepo) Snapshot(id string) *model.StudentTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil
	}
	cp := *task
	return &cp
}

// ListByJob returns a job's tasks ordered by filename then id.
func (f *FakeTaskRepo) ListByJob(_ context.Context, jobID string) ([]*model.StudentTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.StudentTask
	for _, task := range f.tasks {
		if task.JobID != jobID {
			continue
		}
		cp := *task
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Filename != out[j].Filename {
			return out[i].Filename < out[j].Filename
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ApplyResult records a task outcome.
func (f *FakeTaskRepo) ApplyResult(_ context.Context, params core.ApplyTaskResultParams) error {
	if f.ApplyErr != nil {
		return f.ApplyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[params.TaskID]
	if !ok {
		return fmt.Errorf("task %s not found", params.TaskID)
	}
	now := time.Now()
	task.StudentID = params.StudentID
	task.StudentName = params.StudentName
	task.Score = params.Score
	task.Evaluation = params.Evaluation
	task.OCRStatus = params.OCRStatus
	task.OCRDetail = params.OCRDetail
	task.Status = params.Status
	task.ErrorMessage = params.ErrorMessage
	task.ExtractMillis = params.ExtractMillis
	task.ScoreMillis = params.ScoreMillis
	task.ContentLength = params.ContentLength
	task.ProcessedAt = &now
	f.AppliedOrder = append(f.AppliedOrder, params.TaskID)
	return nil
}

// CountByJob returns per-status counts for a job.
func (f *FakeTaskRepo) CountByJob(_ context.Context, jobID string) (model.TaskCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var counts model.TaskCounts
	for _, task := range f.tasks {
		if task.JobID != jobID {
			continue
		}
		counts.Total++
		switch task.Status {
		case model.TaskStatusPending:
			counts.Pending++
		case model.TaskStatusCompleted:
			counts.Completed++
		case model.TaskStatusError:
			counts.Error++
		}
	}
	return counts, nil
}

// FakeSettingsRepo is an in-memory SettingsRepository preserving the
// stored-empty vs unset distinction.
type FakeSettingsRepo struct {
	mu     sync.Mutex
	values map[string]string

	// Err, when set, is returned by every method.
	Err error
}

// NewFakeSettingsRepo creates a FakeSettingsRepo seeded with the given values.
func NewFakeSettingsRepo(values map[string]string) *FakeSettingsRepo {
	stored := make(map[string]string, len(values))
	for k, v := range values {
		stored[k] = v
	}
	return &FakeSettingsRepo{values: stored}
}

// Get returns (value, true, nil) when the key exists, even empty.
func (f *FakeSettingsRepo) Get(_ context.Context, key string) (string, bool, error) {
	if f.Err != nil {
		return "", false, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

// GetAll returns a copy of every stored setting.
func (f *FakeSettingsRepo) GetAll(_ context.Context) (map[string]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

// Set stores or replaces a setting.
func (f *FakeSettingsRepo) Set(_ context.Context, key, value string) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

// Delete removes a setting.
func (f *FakeSettingsRepo) Delete(_ context.Context, key string) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

// FakeCacheRepo is an in-memory CacheRepository. TTLs are recorded but not
// enforced.
type FakeCacheRepo struct {
	mu     sync.Mutex
	values map[string][]byte

	// TTLs records the most recent TTL per key.
	TTLs map[string]time.Duration
}

// NewFakeCacheRepo creates an empty FakeCacheRepo.
func NewFakeCacheRepo() *FakeCacheRepo {
	return &FakeCacheRepo{
		values: make(map[string][]byte),
		TTLs:   make(map[string]time.Duration),
	}
}

// Set stores a value.
func (f *FakeCacheRepo) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = append([]byte(nil), value...)
	f.TTLs[key] = ttl
	return nil
}

// Get returns a stored value, or (nil, nil) when absent.
func (f *FakeCacheRepo) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Delete removes a value, reporting whether it existed.
func (f *FakeCacheRepo) Delete(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	delete(f.values, key)
	return ok, nil
}
