package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aslab/autoscore/internal/core"
	"github.com/aslab/autoscore/internal/domain/model"
	"github.com/aslab/autoscore/internal/mocks"
	"github.com/aslab/autoscore/internal/testutil"
)

func newTracker(jobs *testutil.FakeJobRepo, tasks *testutil.FakeTaskRepo, cache core.CacheRepository) *core.ProgressTracker {
	return core.NewProgressTracker(core.ProgressTrackerOptions{
		Jobs:  jobs,
		Tasks: tasks,
		Cache: cache,
		TTL:   time.Minute,
	})
}

func TestProgressTracker_UpdateThenGet(t *testing.T) {
	t.Parallel()

	cache := testutil.NewFakeCacheRepo()
	tracker := newTracker(testutil.NewFakeJobRepo(), testutil.NewFakeTaskRepo(), cache)

	snap := model.NewProgressSnapshot(model.JobStatusProcessing, "Menilai laporan 1 dari 2...", 1, 2)
	tracker.Update(context.Background(), "job-1", snap)

	got, err := tracker.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	// The snapshot is mirrored into the cache with the configured TTL.
	payload, err := cache.Get(context.Background(), "progress:job:job-1")
	require.NoError(t, err)
	var mirrored model.ProgressSnapshot
	require.NoError(t, json.Unmarshal(payload, &mirrored))
	assert.Equal(t, snap, mirrored)
	assert.Equal(t, time.Minute, cache.TTLs["progress:job:job-1"])
}

func TestProgressTracker_GetFallsBackToCache(t *testing.T) {
	t.Parallel()

	cache := testutil.NewFakeCacheRepo()
	snap := model.NewProgressSnapshot(model.JobStatusProcessing, "Membaca laporan...", 0, 3)
	payload, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, cache.Set(context.Background(), "progress:job:job-9", payload, time.Minute))

	// Fresh tracker with an empty local map, as after a process restart.
	tracker := newTracker(testutil.NewFakeJobRepo(), testutil.NewFakeTaskRepo(), cache)

	got, err := tracker.Get(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestProgressTracker_GetRebuildsFromDurable(t *testing.T) {
	t.Parallel()

	jobs := testutil.NewFakeJobRepo()
	job := testutil.NewJob().WithTotalFiles(3).Build()
	job.StatusMessage = testutil.Ptr("Menilai laporan 2 dari 3...")
	jobs.Put(job)

	tasks := testutil.NewFakeTaskRepo(
		testutil.NewTask().WithID("t1").WithStatus(model.TaskStatusCompleted).Build(),
		testutil.NewTask().WithID("t2").WithStatus(model.TaskStatusError).Build(),
		testutil.NewTask().WithID("t3").Build(),
	)

	tracker := newTracker(jobs, tasks, nil)

	got, err := tracker.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
	assert.Equal(t, "Menilai laporan 2 dari 3...", got.Message)
	assert.Equal(t, 2, got.Current)
	assert.Equal(t, 3, got.Total)
}

func TestProgressTracker_GetUnknownJob(t *testing.T) {
	t.Parallel()

	tracker := newTracker(testutil.NewFakeJobRepo(), testutil.NewFakeTaskRepo(), nil)
	_, err := tracker.Get(context.Background(), "missing")
	require.Error(t, err)
}

func TestProgressTracker_Forget(t *testing.T) {
	t.Parallel()

	jobs := testutil.NewFakeJobRepo()
	cache := testutil.NewFakeCacheRepo()
	tracker := newTracker(jobs, testutil.NewFakeTaskRepo(), cache)

	tracker.Update(context.Background(), "job-1",
		model.NewProgressSnapshot(model.JobStatusCompleted, "Selesai!", 1, 1))
	tracker.Forget(context.Background(), "job-1")

	payload, err := cache.Get(context.Background(), "progress:job:job-1")
	require.NoError(t, err)
	assert.Nil(t, payload)

	_, err = tracker.Get(context.Background(), "job-1")
	require.Error(t, err)
}

func TestProgressTracker_CacheFailuresAreBestEffort(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("redis down")).AnyTimes()
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis down")).AnyTimes()
	cache.EXPECT().Delete(gomock.Any(), gomock.Any()).
		Return(false, errors.New("redis down")).AnyTimes()

	jobs := testutil.NewFakeJobRepo()
	jobs.Put(testutil.NewJob().Build())
	tracker := newTracker(jobs, testutil.NewFakeTaskRepo(), cache)

	snap := model.NewProgressSnapshot(model.JobStatusProcessing, "Membaca laporan...", 0, 1)
	tracker.Update(context.Background(), "job-1", snap)

	// Local map still serves the snapshot despite the cache mirror failing.
	got, err := tracker.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	// With the local entry gone and the cache erroring, Get degrades to the
	// durable records.
	tracker.Forget(context.Background(), "job-1")
	got, err = tracker.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
}
