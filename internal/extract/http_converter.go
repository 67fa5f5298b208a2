package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPConverter implements Converter against a docling-serve-compatible
// conversion service. The service accepts a multipart file upload and returns
// the document exported as markdown, which is what the scoring prompt wants.
type HTTPConverter struct {
	baseURL string
	client  *http.Client
}

// HTTPConverterOptions configures an HTTPConverter.
type HTTPConverterOptions struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// NewHTTPConverter creates an HTTPConverter. The per-call timeout lives on the
// HTTP client so a stuck conversion cannot hold a worker forever.
func NewHTTPConverter(opts HTTPConverterOptions) *HTTPConverter {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPConverter{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
	}
}

type convertResponse struct {
	Document struct {
		MarkdownContent string `json:"md_content"`
	} `json:"document"`
	Status string `json:"status"`
	Errors []struct {
		Message string `json:"error_message"`
	} `json:"errors"`
}

// Convert uploads the file to the conversion service and returns the
// extracted markdown text.
func (c *HTTPConverter) Convert(ctx context.Context, filePath string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("converter base URL is not configured")
	}

	body, contentType, err := buildUpload(filePath)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1alpha/convert/file", body)
	if err != nil {
		return "", fmt.Errorf("build convert request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("convert request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return "", fmt.Errorf("read convert response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("converter returned status %d: %s", resp.StatusCode, truncateForError(raw))
	}

	var parsed convertResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode convert response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return "", fmt.Errorf("converter error: %s", parsed.Errors[0].Message)
	}
	return parsed.Document.MarkdownContent, nil
}

func buildUpload(filePath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", filepath.Base(filePath), err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", filepath.Base(filePath))
	if err != nil {
		return nil, "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", filepath.Base(filePath), err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize upload: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func truncateForError(raw []byte) string {
	const limit = 200
	s := string(raw)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
