package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aslab/autoscore/internal/domain/model"
)

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com"

// GeminiBackend scores through the Gemini generateContent REST API with
// round-robin key rotation. Each attempt draws a fresh credential from the
// rotator, so a rate-limited key is routed around instead of retried.
type GeminiBackend struct {
	rotator     *KeyRotator
	client      *http.Client
	endpoint    string
	temperature float64
	maxRetries  int
	logger      *slog.Logger

	sleep func(time.Duration)
}

// GeminiBackendOptions configures a GeminiBackend.
type GeminiBackendOptions struct {
	Rotator     *KeyRotator
	Client      *http.Client
	Endpoint    string
	Temperature float64
	MaxRetries  int
	Logger      *slog.Logger
}

// NewGeminiBackend creates a GeminiBackend.
func NewGeminiBackend(opts GeminiBackendOptions) *GeminiBackend {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := strings.TrimRight(opts.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &GeminiBackend{
		rotator:     opts.Rotator,
		client:      client,
		endpoint:    endpoint,
		temperature: opts.Temperature,
		maxRetries:  maxRetries,
		logger:      logger.With("component", "gemini_backend"),
		sleep:       time.Sleep,
	}
}

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"system_instruction"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Score attempts the scoring call up to maxRetries times. A rate-limit error
// flags the current key and pauses one second before rotating to the next;
// other errors back off 2^attempt seconds. Exhaustion returns an
// error-flagged result carrying the last error's description.
func (b *GeminiBackend) Score(ctx context.Context, req ScoreRequest) model.ScoringResult {
	var lastErr error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		keyIdx, apiKey, err := b.rotator.Next()
		if err != nil {
			return model.ErrorResult(err.Error())
		}

		start := time.Now()
		raw, err := b.generateContent(ctx, apiKey, req)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				b.rotator.MarkRateLimited(keyIdx)
				b.logger.Warn("rate limit, rotating key",
					"key_index", keyIdx+1, "attempt", attempt+1)
				b.sleep(time.Second)
			} else {
				b.logger.Error("gemini request failed",
					"attempt", attempt+1, "max_retries", b.maxRetries, "error", err)
				b.sleep(time.Duration(1<<attempt) * time.Second)
			}
			continue
		}

		b.rotator.ClearRateLimit(keyIdx)
		result := ParseResponse(raw, req.Normalize)
		b.logger.Debug("gemini scoring done",
			"key_index", keyIdx+1,
			"elapsed", time.Since(start),
			"score", result.Score)
		return result
	}

	return model.ErrorResult(fmt.Sprintf(
		"Gagal menilai setelah %d percobaan (gemini): %v", b.maxRetries, lastErr))
}

func (b *GeminiBackend) generateContent(ctx context.Context, apiKey string, req ScoreRequest) (string, error) {
	payload := geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.UserPrompt}}},
		},
		GenerationConfig: geminiGenConfig{
			ResponseMimeType: "application/json",
			Temperature:      b.temperature,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", b.endpoint, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncateForError(raw))
		}
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini error %d (%s): %s",
			parsed.Error.Code, parsed.Error.Status, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncateForError(raw))
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response has no candidates")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func truncateForError(raw []byte) string {
	const limit = 200
	s := string(raw)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
