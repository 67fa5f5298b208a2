package data_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aslab/autoscore/internal/core"
	"github.com/aslab/autoscore/internal/data"
	"github.com/aslab/autoscore/internal/domain/model"
	apperrors "github.com/aslab/autoscore/internal/errors"
	"github.com/aslab/autoscore/internal/testutil"
)

func TestStudentTaskRepo_ListByJobOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	jobs := data.NewJobRepo(db, data.RepoConfig{})
	tasks := data.NewStudentTaskRepo(db, data.RepoConfig{})
	ctx := context.Background()

	job, err := jobs.Create(ctx, testutil.NewJobRequest().
		WithStudentFiles("/uploads/c.pdf", "/uploads/a.pdf", "/uploads/b.pdf").
		Build())
	require.NoError(t, err)

	listed, err := tasks.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "/uploads/a.pdf", listed[0].Filename)
	assert.Equal(t, "/uploads/b.pdf", listed[1].Filename)
	assert.Equal(t, "/uploads/c.pdf", listed[2].Filename)
}

func TestStudentTaskRepo_ApplyResult(t *testing.T) {
	db := testutil.SetupTestDB(t)
	jobs := data.NewJobRepo(db, data.RepoConfig{})
	tasks := data.NewStudentTaskRepo(db, data.RepoConfig{})
	ctx := context.Background()

	job, err := jobs.Create(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)
	listed, err := tasks.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	err = tasks.ApplyResult(ctx, core.ApplyTaskResultParams{
		TaskID:        listed[0].ID,
		StudentID:     testutil.Ptr("A11202301"),
		StudentName:   testutil.Ptr("Budi Santoso"),
		Score:         testutil.Ptr(85),
		Evaluation:    "Laporan cukup lengkap.",
		OCRStatus:     "ok",
		OCRDetail:     "305 words extracted",
		Status:        model.TaskStatusCompleted,
		ExtractMillis: 1200,
		ScoreMillis:   4100,
		ContentLength: 5321,
	})
	require.NoError(t, err)

	after, err := tasks.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	got := after[0]
	assert.Equal(t, model.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.StudentID)
	assert.Equal(t, "A11202301", *got.StudentID)
	require.NotNil(t, got.Score)
	assert.Equal(t, 85, *got.Score)
	assert.Equal(t, "ok", got.OCRStatus)
	assert.Equal(t, int64(1200), got.ExtractMillis)
	assert.Equal(t, int64(4100), got.ScoreMillis)
	assert.Equal(t, 5321, got.ContentLength)
	assert.NotNil(t, got.ProcessedAt)
	assert.Nil(t, got.ErrorMessage)
}

func TestStudentTaskRepo_ApplyResultValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tasks := data.NewStudentTaskRepo(db, data.RepoConfig{})
	ctx := context.Background()

	err := tasks.ApplyResult(ctx, core.ApplyTaskResultParams{
		TaskID: "00000000-0000-0000-0000-000000000000",
		Status: "done",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	err = tasks.ApplyResult(ctx, core.ApplyTaskResultParams{
		TaskID: "00000000-0000-0000-0000-000000000000",
		Status: model.TaskStatusCompleted,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStudentTaskRepo_CountByJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	jobs := data.NewJobRepo(db, data.RepoConfig{})
	tasks := data.NewStudentTaskRepo(db, data.RepoConfig{})
	ctx := context.Background()

	job, err := jobs.Create(ctx, testutil.NewJobRequest().
		WithStudentFiles("/uploads/a.pdf", "/uploads/b.pdf", "/uploads/c.pdf").
		Build())
	require.NoError(t, err)

	listed, err := tasks.ListByJob(ctx, job.ID)
	require.NoError(t, err)

	require.NoError(t, tasks.ApplyResult(ctx, core.ApplyTaskResultParams{
		TaskID: listed[0].ID, Status: model.TaskStatusCompleted, OCRStatus: "ok",
	}))
	require.NoError(t, tasks.ApplyResult(ctx, core.ApplyTaskResultParams{
		TaskID: listed[1].ID, Status: model.TaskStatusError, OCRStatus: "failed",
		ErrorMessage: testutil.Ptr("Dokumen tidak terbaca"),
	}))

	counts, err := tasks.CountByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCounts{Total: 3, Pending: 1, Completed: 1, Error: 1}, counts)
	assert.Equal(t, 2, counts.Processed())
}
