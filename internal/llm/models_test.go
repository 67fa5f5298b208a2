package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aslab/autoscore/config"
	apperrors "github.com/aslab/autoscore/internal/errors"
)

func facadeWithClient(client *http.Client) *Facade {
	return NewFacade(FacadeOptions{Config: config.LLMConfig{}, Client: client})
}

func TestListModels_RequiresKeyAndKnownProvider(t *testing.T) {
	t.Parallel()

	f := facadeWithClient(nil)
	ctx := context.Background()

	_, err := f.ListModels(ctx, "openai", "", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.ListModels(ctx, "azure", "key", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestListModels_OpenAICompat(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data": [
			{"id": "gpt-4.1", "owned_by": "openai"},
			{"id": "gpt-4.1-mini", "owned_by": "openai"},
			{"id": "babbage-002", "owned_by": "openai"}
		]}`))
	}))
	defer srv.Close()

	f := facadeWithClient(srv.Client())
	models, err := f.ListModels(context.Background(), "openai", "sk-test", srv.URL)
	require.NoError(t, err)

	// Sorted by id.
	require.Len(t, models, 3)
	assert.Equal(t, "babbage-002", models[0].ID)
	assert.Equal(t, "gpt-4.1", models[1].ID)
	assert.Equal(t, "gpt-4.1-mini", models[2].ID)
}

func TestListModels_GithubFallbackProbesVariants(t *testing.T) {
	t.Parallel()

	// The standard /models path under the inference base fails; the catalog
	// lives at the root /models path with publisher-style ownership and
	// api-key auth.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inference/models", "/inference/v1/models":
			w.WriteHeader(http.StatusNotFound)
		case "/models":
			if r.Header.Get("api-key") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`[
				{"id": "openai/gpt-4.1-mini", "publisher": "openai"},
				{"id": "meta/llama-3.3-70b", "publisher": "meta"}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := facadeWithClient(srv.Client())
	models, err := f.ListModels(context.Background(), "github", "ghp-x", srv.URL+"/inference")
	require.NoError(t, err)

	require.Len(t, models, 2)
	assert.Equal(t, "meta/llama-3.3-70b", models[0].ID)
	assert.Equal(t, "meta", models[0].OwnedBy)
	assert.Equal(t, "openai/gpt-4.1-mini", models[1].ID)
}
