// Package mocks provides mock implementations for testing the autoscore job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the repository ports defined in internal/core. The generated files are
// checked in so tests build without a codegen step.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), "job-1").Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/aslab/autoscore/internal/core JobRepository

// Generate mock for StudentTaskRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=student_task_repository_mock.go github.com/aslab/autoscore/internal/core StudentTaskRepository

// Generate mock for SettingsRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=settings_repository_mock.go github.com/aslab/autoscore/internal/core SettingsRepository

// Generate mock for CacheRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/aslab/autoscore/internal/core CacheRepository
