package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aslab/autoscore/config"
	apperrors "github.com/aslab/autoscore/internal/errors"
	"github.com/aslab/autoscore/internal/mocks"
	"github.com/aslab/autoscore/internal/testutil"
)

func TestFacade_Preflight_EnvProviderWithKey(t *testing.T) {
	t.Parallel()

	f := NewFacade(FacadeOptions{
		Settings: testutil.NewFakeSettingsRepo(nil),
		Config:   config.LLMConfig{Provider: "openai", OpenAIAPIKey: "sk-env"},
	})

	require.NoError(t, f.Preflight(context.Background()))
}

func TestFacade_Preflight_StoredEmptyKeySuppressesEnv(t *testing.T) {
	t.Parallel()

	// An operator explicitly cleared the key; the environment value must not
	// silently resurrect it.
	f := NewFacade(FacadeOptions{
		Settings: testutil.NewFakeSettingsRepo(map[string]string{"openai_api_key": ""}),
		Config:   config.LLMConfig{Provider: "openai", OpenAIAPIKey: "sk-env"},
	})

	err := f.Preflight(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestFacade_Preflight_StoredProviderOverridesEnv(t *testing.T) {
	t.Parallel()

	f := NewFacade(FacadeOptions{
		Settings: testutil.NewFakeSettingsRepo(map[string]string{"llm_provider": "deepseek"}),
		Config:   config.LLMConfig{Provider: "openai", OpenAIAPIKey: "sk-env"},
	})

	// The stored provider has no credential anywhere.
	err := f.Preflight(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))

	status, serr := f.Status(context.Background())
	require.NoError(t, serr)
	assert.Equal(t, "deepseek", status["provider"])
}

func TestFacade_Preflight_GeminiKeys(t *testing.T) {
	t.Parallel()

	t.Run("env keys accepted", func(t *testing.T) {
		t.Parallel()
		f := NewFacade(FacadeOptions{
			Settings: testutil.NewFakeSettingsRepo(nil),
			Config:   config.LLMConfig{Provider: "gemini", GeminiAPIKeys: []string{"k1", "k2"}},
		})
		require.NoError(t, f.Preflight(context.Background()))
	})

	t.Run("stored empty list means cleared", func(t *testing.T) {
		t.Parallel()
		f := NewFacade(FacadeOptions{
			Settings: testutil.NewFakeSettingsRepo(map[string]string{"gemini_api_keys": ""}),
			Config:   config.LLMConfig{Provider: "gemini", GeminiAPIKeys: []string{"k1"}},
		})
		err := f.Preflight(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsConfiguration(err))
	})

	t.Run("stored JSON list wins", func(t *testing.T) {
		t.Parallel()
		f := NewFacade(FacadeOptions{
			Settings: testutil.NewFakeSettingsRepo(map[string]string{"gemini_api_keys": `["s1", "s2", "s3"]`}),
			Config:   config.LLMConfig{Provider: "gemini"},
		})
		require.NoError(t, f.Preflight(context.Background()))

		status, err := f.Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, status["api_key_count"])
	})
}

func TestFacade_Preflight_UnknownProvider(t *testing.T) {
	t.Parallel()

	f := NewFacade(FacadeOptions{
		Settings: testutil.NewFakeSettingsRepo(map[string]string{"llm_provider": "azure"}),
		Config:   config.LLMConfig{Provider: "gemini", GeminiAPIKeys: []string{"k1"}},
	})

	err := f.Preflight(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestFacade_ScoreReport_UnknownProvider(t *testing.T) {
	t.Parallel()

	f := NewFacade(FacadeOptions{
		Settings: testutil.NewFakeSettingsRepo(map[string]string{"llm_provider": "azure"}),
		Config:   config.LLMConfig{},
	})

	result := f.ScoreReport(context.Background(), ScoreReportInput{StudentContent: "isi laporan"})

	assert.True(t, result.Error)
	assert.Equal(t, "Provider LLM tidak dikenal: azure", result.Evaluation)
}

func TestFacade_ModelResolution(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stored model wins", func(t *testing.T) {
		t.Parallel()
		f := NewFacade(FacadeOptions{
			Settings: testutil.NewFakeSettingsRepo(map[string]string{"llm_model": "gpt-4o"}),
			Config:   config.LLMConfig{Provider: "openai", Model: "gpt-4.1", OpenAIAPIKey: "sk"},
		})
		status, err := f.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", status["model"])
	})

	t.Run("env model applies for matching provider", func(t *testing.T) {
		t.Parallel()
		f := NewFacade(FacadeOptions{
			Settings: testutil.NewFakeSettingsRepo(nil),
			Config:   config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", OpenAIAPIKey: "sk"},
		})
		status, err := f.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", status["model"])
	})

	t.Run("env model ignored when provider switched", func(t *testing.T) {
		t.Parallel()
		f := NewFacade(FacadeOptions{
			Settings: testutil.NewFakeSettingsRepo(map[string]string{
				"llm_provider":     "deepseek",
				"deepseek_api_key": "dk",
			}),
			Config: config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", OpenAIAPIKey: "sk"},
		})
		status, err := f.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "deepseek-chat", status["model"])
	})
}

func TestFacade_SettingsErrorDegradesToEnv(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	settings := mocks.NewMockSettingsRepository(ctrl)
	settings.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return("", false, errors.New("connection reset")).
		AnyTimes()

	f := NewFacade(FacadeOptions{
		Settings: settings,
		Config:   config.LLMConfig{Provider: "openai", OpenAIAPIKey: "sk-env"},
	})

	// A flaky settings table must not block scoring.
	require.NoError(t, f.Preflight(context.Background()))
}

func TestFacade_StatusOpenAICompatFields(t *testing.T) {
	t.Parallel()

	f := NewFacade(FacadeOptions{
		Settings: testutil.NewFakeSettingsRepo(map[string]string{
			"llm_provider":    "github",
			"github_api_key":  "ghp-x",
			"github_base_url": "https://models.github.ai/v1",
		}),
		Config: config.LLMConfig{},
	})

	status, err := f.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "github", status["provider"])
	assert.Equal(t, true, status["has_api_key"])
	assert.Equal(t, "https://models.github.ai/inference", status["base_url"])
}
