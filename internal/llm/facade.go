package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/aslab/autoscore/config"
	"github.com/aslab/autoscore/internal/core"
	"github.com/aslab/autoscore/internal/domain/model"
	apperrors "github.com/aslab/autoscore/internal/errors"
)

// Settings-store keys for runtime provider configuration. A stored value
// overrides the environment; a stored empty value means "explicitly cleared"
// and is respected as no value rather than falling through to the
// environment.
const (
	SettingProvider      = "llm_provider"
	SettingModel         = "llm_model"
	SettingGeminiAPIKeys = "gemini_api_keys"
)

func settingAPIKey(p Provider) string  { return string(p) + "_api_key" }
func settingBaseURL(p Provider) string { return string(p) + "_base_url" }

// Facade is the single entry point for scoring a student submission. It
// resolves the active provider configuration, assembles the prompts,
// dispatches to the matching backend family, and applies the filename
// identity fallback to the result.
type Facade struct {
	settings core.SettingsRepository
	envCfg   config.LLMConfig
	client   *http.Client
	logger   *slog.Logger

	mu          sync.Mutex
	rotator     *KeyRotator
	rotatorKeys []string
}

// FacadeOptions configures a Facade.
type FacadeOptions struct {
	Settings core.SettingsRepository
	Config   config.LLMConfig
	Client   *http.Client
	Logger   *slog.Logger
}

// NewFacade creates a Facade. The HTTP client carries the per-call timeout
// shared by all provider backends.
func NewFacade(opts FacadeOptions) *Facade {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Config.RequestTimeout}
	}
	return &Facade{
		settings: opts.Settings,
		envCfg:   opts.Config,
		client:   client,
		logger:   logger.With("component", "llm_facade"),
	}
}

// ScoreReportInput is one submission's scoring request.
type ScoreReportInput struct {
	StudentContent   string
	AnswerKeyContent string
	QuestionContent  string
	AdditionalNotes  string

	ScoreMin         int
	ScoreMax         int
	EnableEvaluation bool
	MaxWords         int

	// SourceFilename feeds the identity fallback when the model cannot
	// determine the student id or name from the document itself.
	SourceFilename string
}

// ScoreReport scores one submission with the active provider. It never
// returns an error: all failures become error-flagged results so the
// orchestrator can record them per student.
func (f *Facade) ScoreReport(ctx context.Context, in ScoreReportInput) model.ScoringResult {
	active, err := f.resolveActive(ctx)
	if err != nil {
		return model.ErrorResult(err.Error())
	}

	provider, ok := ParseProvider(active.provider)
	if !ok {
		return model.ErrorResult(fmt.Sprintf("Provider LLM tidak dikenal: %s", active.provider))
	}

	promptIn := PromptInput{
		StudentContent:   in.StudentContent,
		AnswerKeyContent: in.AnswerKeyContent,
		QuestionContent:  in.QuestionContent,
		AdditionalNotes:  in.AdditionalNotes,
		ScoreMin:         in.ScoreMin,
		ScoreMax:         in.ScoreMax,
		EnableEvaluation: in.EnableEvaluation,
		MaxWords:         in.MaxWords,
	}
	req := ScoreRequest{
		SystemPrompt: BuildSystemPrompt(promptIn),
		UserPrompt:   BuildUserPrompt(promptIn),
		Model:        active.modelFor(provider),
		Normalize: NormalizeParams{
			ScoreMin:         in.ScoreMin,
			ScoreMax:         in.ScoreMax,
			EnableEvaluation: in.EnableEvaluation,
			MaxWords:         in.MaxWords,
		},
	}

	result := f.backendFor(provider, active).Score(ctx, req)
	if !result.Error && in.SourceFilename != "" {
		result = ResolveIdentity(result, in.SourceFilename)
	}
	return result
}

// Preflight verifies that the active provider has a usable credential. The
// orchestrator calls it before dispatching any student work so a
// misconfigured provider fails the job fast instead of failing every student
// slowly.
func (f *Facade) Preflight(ctx context.Context) error {
	active, err := f.resolveActive(ctx)
	if err != nil {
		return err
	}
	provider, ok := ParseProvider(active.provider)
	if !ok {
		return apperrors.Configurationf("unknown LLM provider %q", active.provider)
	}
	if provider == ProviderGemini {
		if len(active.geminiKeys) == 0 {
			return apperrors.Configuration("no Gemini API keys configured")
		}
		return nil
	}
	if active.apiKey == "" {
		return apperrors.Configurationf("no API key configured for provider %q", provider)
	}
	return nil
}

// Status reports the active provider, model, and credential availability.
func (f *Facade) Status(ctx context.Context) (map[string]any, error) {
	active, err := f.resolveActive(ctx)
	if err != nil {
		return nil, err
	}
	status := map[string]any{
		"provider": active.provider,
	}
	provider, ok := ParseProvider(active.provider)
	if !ok {
		return status, nil
	}
	status["model"] = active.modelFor(provider)
	if provider == ProviderGemini {
		status["api_key_count"] = len(active.geminiKeys)
	} else {
		status["has_api_key"] = active.apiKey != ""
		status["base_url"] = NormalizeBaseURL(provider, active.baseURL)
	}
	return status, nil
}

func (f *Facade) backendFor(provider Provider, active activeConfig) Backend {
	if provider == ProviderGemini {
		return NewGeminiBackend(GeminiBackendOptions{
			Rotator:     f.rotatorFor(active.geminiKeys),
			Client:      f.client,
			Temperature: f.envCfg.Temperature,
			MaxRetries:  f.envCfg.MaxRetries,
			Logger:      f.logger,
		})
	}
	return NewOpenAICompatBackend(OpenAICompatBackendOptions{
		Provider:    provider,
		APIKey:      active.apiKey,
		BaseURL:     active.baseURL,
		Client:      f.client,
		Temperature: f.envCfg.Temperature,
		MaxRetries:  f.envCfg.MaxRetries,
		Logger:      f.logger,
	})
}

// rotatorFor returns the shared rotator, rebuilding it when the resolved key
// list changed. Rebuilding drops rate-limit flags, which is correct: the
// flags describe keys that may no longer exist.
func (f *Facade) rotatorFor(keys []string) *KeyRotator {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rotator == nil || !slices.Equal(f.rotatorKeys, keys) {
		f.rotator = NewKeyRotator(keys, f.logger)
		f.rotatorKeys = slices.Clone(keys)
	}
	return f.rotator
}

// activeConfig is the resolved provider configuration for one call.
type activeConfig struct {
	provider   string
	model      string
	geminiKeys []string
	apiKey     string
	baseURL    string
}

// modelFor applies the model default chain: stored or env model first, then
// the provider's built-in default.
func (a activeConfig) modelFor(p Provider) string {
	if a.model != "" {
		return a.model
	}
	return p.DefaultModel()
}

// resolveActive merges stored settings over environment configuration. The
// stored layer wins field by field, and an explicitly stored empty value
// suppresses the environment fallback for that field.
func (f *Facade) resolveActive(ctx context.Context) (activeConfig, error) {
	provider := f.resolveSetting(ctx, SettingProvider, f.envCfg.Provider)
	if provider == "" {
		provider = string(ProviderGemini)
	}

	model := f.resolveSetting(ctx, SettingModel, "")
	if model == "" {
		// The env model only applies when it was written for the same
		// provider that is now active.
		if f.envCfg.Model != "" && provider == f.envCfg.Provider {
			model = f.envCfg.Model
		}
	}

	active := activeConfig{provider: provider, model: model}

	p, ok := ParseProvider(provider)
	if !ok {
		return active, nil
	}

	if p == ProviderGemini {
		active.geminiKeys = f.resolveGeminiKeys(ctx)
		return active, nil
	}

	envKey, envBase := f.envProviderValues(p)
	active.apiKey = f.resolveSetting(ctx, settingAPIKey(p), envKey)
	active.baseURL = f.resolveSetting(ctx, settingBaseURL(p), envBase)
	return active, nil
}

// resolveSetting returns the stored value when the key exists (including an
// explicitly empty one) and the environment fallback otherwise. Store read
// errors degrade to the environment value with a warning: scoring should
// survive a flaky settings table.
func (f *Facade) resolveSetting(ctx context.Context, key, envValue string) string {
	if f.settings == nil {
		return envValue
	}
	value, found, err := f.settings.Get(ctx, key)
	if err != nil {
		f.logger.Warn("settings lookup failed, using environment value", "key", key, "error", err)
		return envValue
	}
	if found {
		return value
	}
	return envValue
}

// resolveGeminiKeys reads the stored JSON key list, falling back to the
// environment list when unset. A stored empty list (or unparseable value)
// means cleared keys, not "use the environment".
func (f *Facade) resolveGeminiKeys(ctx context.Context) []string {
	if f.settings == nil {
		return f.envCfg.GeminiAPIKeys
	}
	stored, found, err := f.settings.Get(ctx, SettingGeminiAPIKeys)
	if err != nil {
		f.logger.Warn("settings lookup failed, using environment keys", "error", err)
		return f.envCfg.GeminiAPIKeys
	}
	if !found {
		return f.envCfg.GeminiAPIKeys
	}
	if stored == "" {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(stored), &keys); err != nil {
		f.logger.Warn("stored gemini key list is not valid JSON, treating as cleared", "error", err)
		return nil
	}
	return keys
}

func (f *Facade) envProviderValues(p Provider) (apiKey, baseURL string) {
	switch p {
	case ProviderNvidia:
		return f.envCfg.NvidiaAPIKey, f.envCfg.NvidiaBaseURL
	case ProviderOpenAI:
		return f.envCfg.OpenAIAPIKey, f.envCfg.OpenAIBaseURL
	case ProviderDeepseek:
		return f.envCfg.DeepseekAPIKey, f.envCfg.DeepseekBaseURL
	case ProviderOpenrouter:
		return f.envCfg.OpenrouterAPIKey, f.envCfg.OpenrouterBaseURL
	case ProviderSiliconflow:
		return f.envCfg.SiliconflowAPIKey, f.envCfg.SiliconflowBaseURL
	case ProviderGithub:
		return f.envCfg.GithubAPIKey, f.envCfg.GithubBaseURL
	}
	return "", ""
}
