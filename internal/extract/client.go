// Package extract wraps the external document-conversion service and adds
// plain-text shortcuts, retry with backoff, and multi-file concatenation.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/aslab/autoscore/config"
)

// Converter is the external document-conversion collaborator. Implementations
// turn one document file into LLM-ready text and are expected to be fallible
// and potentially slow.
type Converter interface {
	Convert(ctx context.Context, filePath string) (string, error)
}

// plainTextExts are read directly without the converter.
var plainTextExts = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".text":     true,
}

// Client extracts text from submission documents. Plain-text files bypass the
// converter; everything else is delegated to it.
type Client struct {
	converter  Converter
	maxRetries int
	logger     *slog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Converter Converter
	Config    config.ExtractionConfig
	Logger    *slog.Logger
}

// NewClient creates an extraction Client.
func NewClient(opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxRetries := opts.Config.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		converter:  opts.Converter,
		maxRetries: maxRetries,
		logger:     logger.With("component", "extract"),
		sleep:      time.Sleep,
	}
}

// Extract returns the text content of a single file. Plain-text files are
// read from disk; if the bytes are not valid UTF-8 they are re-decoded as
// Latin-1 so legacy submissions still yield usable text.
func (c *Client) Extract(ctx context.Context, filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if plainTextExts[ext] {
		return readPlainText(filePath)
	}

	if c.converter == nil {
		return "", fmt.Errorf("no converter configured for %s files", ext)
	}

	text, err := c.converter.Convert(ctx, filePath)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", filepath.Base(filePath), err)
	}
	return text, nil
}

// ExtractWithRetry attempts extraction up to the configured retry ceiling,
// sleeping 2^attempt seconds between attempts. Exhaustion returns ok=false
// rather than an error: an unreadable file is a per-student outcome, not a
// job-level failure.
func (c *Client) ExtractWithRetry(ctx context.Context, filePath string) (string, bool) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", false
		}
		if attempt > 0 {
			c.sleep(time.Duration(1<<attempt) * time.Second)
		}

		text, err := c.Extract(ctx, filePath)
		if err == nil {
			return text, true
		}
		lastErr = err
		c.logger.Warn("extraction attempt failed",
			"file", filepath.Base(filePath),
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"error", err)
	}

	c.logger.Error("extraction exhausted all retries",
		"file", filepath.Base(filePath),
		"error", lastErr)
	return "", false
}

// ExtractMany extracts each file and concatenates the successful outputs with
// a per-file separator header. Files that fail individually are skipped with
// a warning. Returns ok=false only when no file produced any text.
func (c *Client) ExtractMany(ctx context.Context, filePaths []string) (string, bool) {
	var parts []string
	for _, path := range filePaths {
		text, ok := c.ExtractWithRetry(ctx, path)
		if !ok {
			c.logger.Warn("skipping unreadable file in multi-file submission",
				"file", filepath.Base(path))
			continue
		}
		parts = append(parts, fmt.Sprintf("=== FILE: %s ===\n%s", filepath.Base(path), text))
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

func readPlainText(filePath string) (string, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(filePath), err)
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(filePath), err)
	}
	return string(decoded), nil
}
