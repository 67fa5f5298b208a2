package llm

import (
	"context"
	"strings"

	"github.com/aslab/autoscore/internal/domain/model"
)

// ScoreRequest is the input to one backend scoring call. Prompts arrive fully
// assembled; the backend only transports them and normalizes the response.
type ScoreRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Normalize    NormalizeParams
}

// Backend is one provider family's scoring transport. Implementations never
// return an error: every failure mode is folded into an error-flagged
// ScoringResult so per-student failures stay per-student.
type Backend interface {
	Score(ctx context.Context, req ScoreRequest) model.ScoringResult
}

// isRateLimitError classifies a provider error as transient throttling by
// message content. Providers are inconsistent about status codes versus
// message phrasing, so this matches the union of what they emit.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "429")
}

// isJSONModeUnsupported reports whether a chat-completions error indicates
// the model rejects response_format=json_object.
func isJSONModeUnsupported(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "response_format") || strings.Contains(msg, "json_object") {
		return true
	}
	return strings.Contains(msg, "unsupported") && strings.Contains(msg, "json")
}
