package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aslab/autoscore/internal/domain/model"
)

// OpenAICompatBackend scores through an OpenAI-compatible chat completions
// endpoint with a single API key. It covers every non-Gemini provider; the
// per-provider differences are only the base URL and default model.
type OpenAICompatBackend struct {
	provider    Provider
	apiKey      string
	baseURL     string
	client      *http.Client
	temperature float64
	maxRetries  int
	logger      *slog.Logger

	sleep func(time.Duration)
}

// OpenAICompatBackendOptions configures an OpenAICompatBackend.
type OpenAICompatBackendOptions struct {
	Provider    Provider
	APIKey      string
	BaseURL     string
	Client      *http.Client
	Temperature float64
	MaxRetries  int
	Logger      *slog.Logger
}

// NewOpenAICompatBackend creates an OpenAICompatBackend. The base URL is
// normalized for known endpoint quirks (GitHub Models' /inference path).
func NewOpenAICompatBackend(opts OpenAICompatBackendOptions) *OpenAICompatBackend {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = opts.Provider.DefaultBaseURL()
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &OpenAICompatBackend{
		provider:    opts.Provider,
		apiKey:      opts.APIKey,
		baseURL:     NormalizeBaseURL(opts.Provider, baseURL),
		client:      client,
		temperature: opts.Temperature,
		maxRetries:  maxRetries,
		logger:      logger.With("component", "openai_backend", "provider", string(opts.Provider)),
		sleep:       time.Sleep,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Score attempts the scoring call up to maxRetries times with 2^attempt
// backoff between attempts. Each attempt first requests structured JSON
// output; when the provider rejects that mode, the attempt transparently
// retries once in plain-text mode without consuming a retry slot.
func (b *OpenAICompatBackend) Score(ctx context.Context, req ScoreRequest) model.ScoringResult {
	if b.apiKey == "" {
		return model.ErrorResult(fmt.Sprintf(
			"API key %s belum dikonfigurasi", string(b.provider)))
	}

	var lastErr error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		if attempt > 0 {
			b.sleep(time.Duration(1<<attempt) * time.Second)
		}

		start := time.Now()
		raw, err := b.chatCompletion(ctx, req, true)
		if err != nil && isJSONModeUnsupported(err) {
			b.logger.Warn("model rejects json_object response format, retrying in plain mode")
			raw, err = b.chatCompletion(ctx, req, false)
		}
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				b.logger.Warn("rate limit", "attempt", attempt+1, "error", err)
			} else {
				b.logger.Error("chat completion failed",
					"attempt", attempt+1, "max_retries", b.maxRetries, "error", err)
			}
			continue
		}

		result := ParseResponse(raw, req.Normalize)
		b.logger.Debug("scoring done", "elapsed", time.Since(start), "score", result.Score)
		return result
	}

	return model.ErrorResult(fmt.Sprintf(
		"Gagal menilai setelah %d percobaan (%s): %v", b.maxRetries, string(b.provider), lastErr))
}

func (b *OpenAICompatBackend) chatCompletion(ctx context.Context, req ScoreRequest, jsonMode bool) (string, error) {
	payload := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: b.temperature,
	}
	if jsonMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncateForError(raw))
		}
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error (%s, status %d): %s",
			parsed.Error.Type, resp.StatusCode, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncateForError(raw))
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completion response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
