package config

import "time"

// LLMConfig contains LLM provider configuration. These values are the
// lowest-precedence layer: keys stored through the runtime settings store
// override them, and a stored empty value is respected as "no key" rather
// than falling back here.
type LLMConfig struct {
	// Provider selects the active provider family when no stored override exists.
	Provider string `env:"PROVIDER" envDefault:"gemini"`
	// Model is the model identifier for Provider; empty selects the
	// provider's built-in default.
	Model string `env:"MODEL" envDefault:""`

	// GeminiAPIKeys is the ordered credential list rotated across Gemini requests.
	GeminiAPIKeys []string `env:"GEMINI_API_KEYS" envSeparator:","`

	NvidiaAPIKey      string `env:"NVIDIA_API_KEY"      envDefault:""`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"      envDefault:""`
	DeepseekAPIKey    string `env:"DEEPSEEK_API_KEY"    envDefault:""`
	OpenrouterAPIKey  string `env:"OPENROUTER_API_KEY"  envDefault:""`
	SiliconflowAPIKey string `env:"SILICONFLOW_API_KEY" envDefault:""`
	GithubAPIKey      string `env:"GITHUB_API_KEY"      envDefault:""`

	NvidiaBaseURL      string `env:"NVIDIA_BASE_URL"      envDefault:""`
	OpenAIBaseURL      string `env:"OPENAI_BASE_URL"      envDefault:""`
	DeepseekBaseURL    string `env:"DEEPSEEK_BASE_URL"    envDefault:""`
	OpenrouterBaseURL  string `env:"OPENROUTER_BASE_URL"  envDefault:""`
	SiliconflowBaseURL string `env:"SILICONFLOW_BASE_URL" envDefault:""`
	GithubBaseURL      string `env:"GITHUB_BASE_URL"      envDefault:""`

	// MaxRetries bounds scoring attempts per student submission.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"3"`

	// RequestTimeout bounds each provider HTTP call so a hung request cannot
	// occupy a worker indefinitely.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"2m"`

	// Temperature for scoring requests. Low by default for consistent scores.
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.3"`
}

// Sanitize applies guardrails to LLM configuration values.
func (c *LLMConfig) Sanitize() {
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.RequestTimeout < 10*time.Second {
		c.RequestTimeout = 10 * time.Second
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		c.Temperature = 0.3
	}
}
