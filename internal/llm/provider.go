// Package llm scores student submissions through pluggable provider backends.
// Two backend families exist: Gemini (generateContent, key rotation) and
// OpenAI-compatible (chat completions, single key). Everything downstream of
// the raw HTTP response is shared: prompt assembly, response normalization,
// and identity fallback.
package llm

import (
	"net/url"
	"strings"
)

// Provider identifies an LLM provider family member.
type Provider string

// Known providers. Gemini is its own family; the rest speak the
// OpenAI-compatible chat completions protocol.
const (
	ProviderGemini      Provider = "gemini"
	ProviderNvidia      Provider = "nvidia"
	ProviderOpenAI      Provider = "openai"
	ProviderDeepseek    Provider = "deepseek"
	ProviderOpenrouter  Provider = "openrouter"
	ProviderSiliconflow Provider = "siliconflow"
	ProviderGithub      Provider = "github"
)

var defaultModels = map[Provider]string{
	ProviderGemini:      "gemini-2.5-flash",
	ProviderNvidia:      "moonshotai/kimi-k2.5",
	ProviderOpenAI:      "gpt-4.1",
	ProviderDeepseek:    "deepseek-chat",
	ProviderOpenrouter:  "openai/gpt-4o-mini",
	ProviderSiliconflow: "Qwen/Qwen2.5-72B-Instruct",
	ProviderGithub:      "openai/gpt-4.1-mini",
}

var defaultBaseURLs = map[Provider]string{
	ProviderNvidia:      "https://integrate.api.nvidia.com/v1",
	ProviderOpenAI:      "https://api.openai.com/v1",
	ProviderDeepseek:    "https://api.deepseek.com/v1",
	ProviderOpenrouter:  "https://openrouter.ai/api/v1",
	ProviderSiliconflow: "https://api.siliconflow.cn/v1",
	ProviderGithub:      "https://models.github.ai/inference",
}

// ParseProvider returns the Provider for a configuration string, or false for
// anything unknown. Matching is case-insensitive.
func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderGemini, ProviderNvidia, ProviderOpenAI, ProviderDeepseek,
		ProviderOpenrouter, ProviderSiliconflow, ProviderGithub:
		return p, true
	}
	return "", false
}

// OpenAICompatible reports whether the provider speaks the OpenAI chat
// completions protocol.
func (p Provider) OpenAICompatible() bool {
	switch p {
	case ProviderNvidia, ProviderOpenAI, ProviderDeepseek,
		ProviderOpenrouter, ProviderSiliconflow, ProviderGithub:
		return true
	}
	return false
}

// DefaultModel returns the provider's built-in default model identifier.
func (p Provider) DefaultModel() string {
	return defaultModels[p]
}

// DefaultBaseURL returns the provider's default API endpoint.
func (p Provider) DefaultBaseURL() string {
	return defaultBaseURLs[p]
}

// NormalizeBaseURL trims trailing slashes and fixes known endpoint quirks.
// GitHub Models serves chat completions under /inference, not /v1, so a bare
// models.github.ai URL (or one ending in /v1) is rewritten.
func NormalizeBaseURL(p Provider, baseURL string) string {
	normalized := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if normalized == "" || p != ProviderGithub {
		return normalized
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	host := strings.ToLower(u.Hostname())
	path := strings.TrimRight(u.Path, "/")
	if host == "models.github.ai" && (path == "" || path == "/v1") {
		u.Path = "/inference"
		return strings.TrimRight(u.String(), "/")
	}
	return normalized
}
