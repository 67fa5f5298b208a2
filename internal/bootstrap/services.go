package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/aslab/autoscore/config"
	"github.com/aslab/autoscore/internal/adapters/scorerunner"
	"github.com/aslab/autoscore/internal/core"
	"github.com/aslab/autoscore/internal/data"
	"github.com/aslab/autoscore/internal/extract"
	"github.com/aslab/autoscore/internal/llm"
	"github.com/aslab/autoscore/internal/report"
	"github.com/aslab/autoscore/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs     core.JobRepository
	Tasks    core.StudentTaskRepository
	Settings core.SettingsRepository
	Progress *core.ProgressTracker
	LLM      *llm.Facade
	Scoring  *service.ScoringService
	Runner   *scorerunner.Runner
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // optional
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	JobRepo      *data.JobRepo
	TaskRepo     *data.StudentTaskRepo
	SettingsRepo *data.SettingsRepo
	CacheRepo    *data.RedisCacheRepo
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient) *serviceRepositories {
	repos := &serviceRepositories{
		JobRepo:      data.NewJobRepo(db, data.RepoConfig{}),
		TaskRepo:     data.NewStudentTaskRepo(db, data.RepoConfig{}),
		SettingsRepo: data.NewSettingsRepo(db, data.RepoConfig{}),
	}
	if redisClient != nil {
		repos.CacheRepo = data.NewRedisCacheRepo(redisClient)
	}
	return repos
}

// NewServices assembles the full service graph from shared infrastructure.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	repos := buildRepositories(deps.DB, deps.RedisClient)

	// CacheRepo is nil when Redis is absent; the tracker treats the cache
	// mirror as optional.
	var cache core.CacheRepository
	if repos.CacheRepo != nil {
		cache = repos.CacheRepo
	}
	progress := core.NewProgressTracker(core.ProgressTrackerOptions{
		Jobs:   repos.JobRepo,
		Tasks:  repos.TaskRepo,
		Cache:  cache,
		TTL:    cfg.Redis.ProgressTTL,
		Logger: logger,
	})

	var converter extract.Converter
	if cfg.Extraction.ConverterURL != "" {
		converter = extract.NewHTTPConverter(extract.HTTPConverterOptions{
			BaseURL: cfg.Extraction.ConverterURL,
			Timeout: cfg.Extraction.RequestTimeout,
		})
	} else {
		logger.Warn("no converter URL configured; only plain-text submissions can be extracted")
	}
	extractor := extract.NewClient(extract.ClientOptions{
		Converter: converter,
		Config:    cfg.Extraction,
		Logger:    logger,
	})

	facade := llm.NewFacade(llm.FacadeOptions{
		Settings: repos.SettingsRepo,
		Config:   cfg.LLM,
		Client:   &http.Client{Timeout: cfg.LLM.RequestTimeout},
		Logger:   logger,
	})

	reports := report.NewGenerator(report.GeneratorOptions{
		ResultsDir: cfg.Scoring.ResultsDir,
		Logger:     logger,
	})

	scoring := service.NewScoringService(service.ScoringServiceOptions{
		Jobs:             repos.JobRepo,
		Tasks:            repos.TaskRepo,
		Scorer:           facade,
		Extract:          extractor,
		Reports:          reports,
		Progress:         progress,
		ScoringConfig:    cfg.Scoring,
		ExtractionConfig: cfg.Extraction,
		Logger:           logger,
	})

	runner, err := scorerunner.NewRunner(scorerunner.RunnerOptions{
		Jobs:         repos.JobRepo,
		Scoring:      scoring,
		Logger:       logger,
		Concurrency:  cfg.Scoring.RunnerConcurrency,
		PollInterval: cfg.Scoring.PollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("build score runner: %w", err)
	}

	return &ServiceContainer{
		Jobs:     repos.JobRepo,
		Tasks:    repos.TaskRepo,
		Settings: repos.SettingsRepo,
		Progress: progress,
		LLM:      facade,
		Scoring:  scoring,
		Runner:   runner,
	}, nil
}
