package extract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPConverter_Convert(t *testing.T) {
	t.Parallel()

	var gotPath, gotFilename, gotContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		raw, err := io.ReadAll(file)
		require.NoError(t, err)
		gotContent = string(raw)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"document":{"md_content":"# Laporan\n\nisi laporan"},"status":"success"}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "laporan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf-bytes"), 0o600))

	conv := NewHTTPConverter(HTTPConverterOptions{BaseURL: server.URL + "/"})
	text, err := conv.Convert(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "# Laporan\n\nisi laporan", text)
	assert.Equal(t, "/v1alpha/convert/file", gotPath)
	assert.Equal(t, "laporan.pdf", gotFilename)
	assert.Equal(t, "pdf-bytes", gotContent)
}

func TestHTTPConverter_ServiceError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"failure","errors":[{"error_message":"unsupported file format"}]}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "laporan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	conv := NewHTTPConverter(HTTPConverterOptions{BaseURL: server.URL})
	_, err := conv.Convert(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "converter error: unsupported file format")
}

func TestHTTPConverter_NonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "laporan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	conv := NewHTTPConverter(HTTPConverterOptions{BaseURL: server.URL})
	_, err := conv.Convert(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "converter returned status 500")
}

func TestHTTPConverter_MissingBaseURL(t *testing.T) {
	t.Parallel()

	conv := NewHTTPConverter(HTTPConverterOptions{})
	_, err := conv.Convert(context.Background(), "/uploads/laporan.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL is not configured")
}

func TestHTTPConverter_MissingFile(t *testing.T) {
	t.Parallel()

	conv := NewHTTPConverter(HTTPConverterOptions{BaseURL: "http://localhost:1"})
	_, err := conv.Convert(context.Background(), filepath.Join(t.TempDir(), "hilang.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open hilang.pdf")
}
