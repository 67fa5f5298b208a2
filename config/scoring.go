package config

import "time"

// ScoringConfig contains orchestration configuration for grading jobs.
type ScoringConfig struct {
	// MaxWorkers bounds concurrent per-student processing within one job.
	MaxWorkers int `env:"MAX_WORKERS" envDefault:"4"`

	// RunnerConcurrency is the number of jobs the background runner may
	// execute at once.
	RunnerConcurrency int `env:"RUNNER_CONCURRENCY" envDefault:"1"`

	// PollInterval is how often the runner checks for pending jobs when idle.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`

	// ResultsDir is where report artifacts are written.
	ResultsDir string `env:"RESULTS_DIR" envDefault:"results"`

	// EvaluationMaxWords truncates evaluation text to this many words.
	EvaluationMaxWords int `env:"EVALUATION_MAX_WORDS" envDefault:"100"`

	// DefaultScoreMin and DefaultScoreMax are applied when a job request
	// leaves the bounds unset.
	DefaultScoreMin int `env:"DEFAULT_SCORE_MIN" envDefault:"40"`
	DefaultScoreMax int `env:"DEFAULT_SCORE_MAX" envDefault:"100"`
}

// Sanitize applies guardrails to scoring configuration values.
func (c *ScoringConfig) Sanitize() {
	if c.MaxWorkers < 1 {
		c.MaxWorkers = 1
	}
	if c.RunnerConcurrency < 1 {
		c.RunnerConcurrency = 1
	}
	if c.PollInterval < 100*time.Millisecond {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.EvaluationMaxWords < 1 {
		c.EvaluationMaxWords = 100
	}
	if c.DefaultScoreMin < 0 || c.DefaultScoreMin > 100 {
		c.DefaultScoreMin = 40
	}
	if c.DefaultScoreMax < 1 || c.DefaultScoreMax > 100 {
		c.DefaultScoreMax = 100
	}
	if c.DefaultScoreMin >= c.DefaultScoreMax {
		c.DefaultScoreMin = 0
	}
}

// ExtractionConfig contains document extraction configuration.
type ExtractionConfig struct {
	// ConverterURL is the base URL of the document-conversion service. Empty
	// means only plain-text files can be extracted.
	ConverterURL string `env:"CONVERTER_URL"`

	// RequestTimeout bounds one conversion call. Conversion of scanned PDFs
	// can be slow, so this is generous by default.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5m"`

	// MaxRetries bounds conversion attempts per document.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"3"`

	// MinSignalWords is the OCR-quality threshold: extracted text dominated
	// by image placeholders with fewer words than this is classified as a
	// failed extraction.
	MinSignalWords int `env:"MIN_SIGNAL_WORDS" envDefault:"5"`
}

// Sanitize applies guardrails to extraction configuration values.
func (c *ExtractionConfig) Sanitize() {
	if c.RequestTimeout < time.Second {
		c.RequestTimeout = 5 * time.Minute
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.MinSignalWords < 1 {
		c.MinSignalWords = 5
	}
}
