package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aslab/autoscore/internal/domain/model"
)

func TestScoringResult_Identity(t *testing.T) {
	t.Parallel()

	full := model.ScoringResult{StudentID: "A11202301", StudentName: "Budi Santoso"}
	assert.True(t, full.HasIdentity())
	assert.False(t, full.MissingStudentID())
	assert.False(t, full.MissingStudentName())

	partial := model.ScoringResult{StudentID: "A11202301", StudentName: model.IdentityNotFound}
	assert.False(t, partial.HasIdentity())
	assert.False(t, partial.MissingStudentID())
	assert.True(t, partial.MissingStudentName())

	empty := model.ScoringResult{}
	assert.False(t, empty.HasIdentity())
	assert.True(t, empty.MissingStudentID())

	errored := model.ScoringResult{StudentID: model.IdentityError, StudentName: model.IdentityError}
	assert.False(t, errored.HasIdentity())
}

func TestErrorResult(t *testing.T) {
	t.Parallel()

	r := model.ErrorResult("Gagal menilai laporan")
	assert.True(t, r.Error)
	assert.Equal(t, model.IdentityError, r.StudentID)
	assert.Equal(t, model.IdentityError, r.StudentName)
	assert.Nil(t, r.Score)
	assert.Equal(t, "Gagal menilai laporan", r.Evaluation)
}

func TestNewProgressSnapshot(t *testing.T) {
	t.Parallel()

	snap := model.NewProgressSnapshot(model.JobStatusProcessing, "Menilai laporan 3 dari 4...", 3, 4)
	assert.Equal(t, 3, snap.Current)
	assert.Equal(t, 4, snap.Total)
	assert.InDelta(t, 75.0, snap.Progress, 0.001)

	zero := model.NewProgressSnapshot(model.JobStatusPending, "", 0, 0)
	assert.Zero(t, zero.Progress)
}

func TestTaskCounts_Processed(t *testing.T) {
	t.Parallel()

	counts := model.TaskCounts{Total: 10, Pending: 4, Completed: 5, Error: 1}
	assert.Equal(t, 6, counts.Processed())
}
