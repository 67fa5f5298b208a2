// Package config holds environment-driven configuration for the autoscore engine.
package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config files for the
// available variables:
//   - database.go: Postgres and Redis configuration
//   - llm.go: LLM provider configuration
//   - scoring.go: scoring/orchestration and extraction configuration
type AppConfig struct {
	// IsDev controls development mode behavior. Set DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	LLM        LLMConfig        `envPrefix:"LLM_"`
	Scoring    ScoringConfig    `envPrefix:"SCORING_"`
	Extraction ExtractionConfig `envPrefix:"EXTRACT_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// Call after env parsing.
func (c *AppConfig) Sanitize() {
	c.LLM.Sanitize()
	c.Scoring.Sanitize()
	c.Extraction.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks APP_ENV as a fallback for the DEV flag.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}
