package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/aslab/autoscore/internal/errors"
)

// ModelInfo describes one model a provider offers.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ListModels fetches the models available under the given credential so an
// operator can pick one without leaving the app. GitHub Models serves its
// listing under non-standard paths, so a failed standard listing there falls
// back to probing the known variants.
func (f *Facade) ListModels(ctx context.Context, providerName, apiKey, baseURL string) ([]ModelInfo, error) {
	if apiKey == "" {
		return nil, apperrors.Validation("API key is required to list models")
	}
	provider, ok := ParseProvider(providerName)
	if !ok {
		return nil, apperrors.Validationf("unknown provider %q", providerName)
	}

	if provider == ProviderGemini {
		return f.listGeminiModels(ctx, apiKey)
	}

	effectiveBase := baseURL
	if effectiveBase == "" {
		effectiveBase = provider.DefaultBaseURL()
	}
	effectiveBase = NormalizeBaseURL(provider, effectiveBase)

	models, err := f.listOpenAICompatModels(ctx, apiKey, effectiveBase)
	if err != nil {
		if provider != ProviderGithub {
			return nil, err
		}
		f.logger.Warn("standard model listing failed, probing GitHub variants", "error", err)
		return f.listGithubModelsFallback(ctx, apiKey, effectiveBase)
	}
	return models, nil
}

type geminiModelList struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (f *Facade) listGeminiModels(ctx context.Context, apiKey string) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		defaultGeminiEndpoint+"/v1beta/models", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-goog-api-key", apiKey)

	var parsed geminiModelList
	if err := f.getJSON(req, &parsed); err != nil {
		return nil, fmt.Errorf("list gemini models: %w", err)
	}

	models := make([]ModelInfo, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		models = append(models, ModelInfo{
			ID:      strings.TrimPrefix(m.Name, "models/"),
			OwnedBy: "google",
		})
	}
	sortModels(models)
	return models, nil
}

type openAIModelList struct {
	Data []struct {
		ID        string `json:"id"`
		OwnedBy   string `json:"owned_by"`
		Publisher string `json:"publisher"`
	} `json:"data"`
}

func (f *Facade) listOpenAICompatModels(ctx context.Context, apiKey, baseURL string) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	var parsed openAIModelList
	if err := f.getJSON(req, &parsed); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	models := make([]ModelInfo, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		owned := m.OwnedBy
		if owned == "" {
			owned = m.Publisher
		}
		models = append(models, ModelInfo{ID: m.ID, OwnedBy: owned})
	}
	sortModels(models)
	return models, nil
}

// listGithubModelsFallback probes the endpoint path variants GitHub Models
// has shipped under, trying Bearer auth first and the api-key header on auth
// failures.
func (f *Facade) listGithubModelsFallback(ctx context.Context, apiKey, baseURL string) ([]ModelInfo, error) {
	base := strings.TrimRight(baseURL, "/")
	candidates := []string{base + "/models", base + "/v1/models"}
	if trimmed, ok := strings.CutSuffix(base, "/inference"); ok {
		candidates = append(candidates, trimmed+"/models")
	}

	seen := make(map[string]bool)
	var failures []string
	for _, url := range candidates {
		if seen[url] {
			continue
		}
		seen[url] = true

		models, err := f.fetchGithubModels(ctx, url, apiKey)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", url, err))
			continue
		}
		if len(models) > 0 {
			sortModels(models)
			return models, nil
		}
		failures = append(failures, url+": empty model list")
	}

	return nil, fmt.Errorf("GitHub model listing failed: %s", strings.Join(failures, "; "))
}

func (f *Facade) fetchGithubModels(ctx context.Context, url, apiKey string) ([]ModelInfo, error) {
	fetch := func(header, value string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set(header, value)
		return f.client.Do(req)
	}

	resp, err := fetch("Authorization", "Bearer "+apiKey)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		resp, err = fetch("api-key", apiKey)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	// The payload may be either {"data": [...]} or a bare array.
	var wrapped openAIModelList
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 {
		models := make([]ModelInfo, 0, len(wrapped.Data))
		for _, m := range wrapped.Data {
			owned := m.OwnedBy
			if owned == "" {
				owned = m.Publisher
			}
			models = append(models, ModelInfo{ID: m.ID, OwnedBy: owned})
		}
		return models, nil
	}

	var bare []struct {
		ID        string `json:"id"`
		OwnedBy   string `json:"owned_by"`
		Publisher string `json:"publisher"`
	}
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, fmt.Errorf("unrecognized response format")
	}
	models := make([]ModelInfo, 0, len(bare))
	for _, m := range bare {
		owned := m.OwnedBy
		if owned == "" {
			owned = m.Publisher
		}
		models = append(models, ModelInfo{ID: m.ID, OwnedBy: owned})
	}
	return models, nil
}

func (f *Facade) getJSON(req *http.Request, out any) error {
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncateForError(raw))
	}
	return json.Unmarshal(raw, out)
}

func sortModels(models []ModelInfo) {
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
}
