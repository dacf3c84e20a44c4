package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProbeSizeFromHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Length", "4096")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(zap.NewNop())
	size, err := f.ProbeSize(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), size)
}

func TestProbeSizeFallsBackToRangedGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			// No Content-Length from HEAD.
			w.WriteHeader(http.StatusOK)
			return
		}
		require.Equal(t, "bytes=0-1024", r.Header.Get("Range"))
		w.Header().Set("Content-Range", "bytes 0-1024/987654")
		w.WriteHeader(http.StatusPartialContent)
		fmt.Fprint(w, "partial body")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(zap.NewNop())
	size, err := f.ProbeSize(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(987654), size)
}

func TestProbeSizeAssumesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(zap.NewNop())
	size, err := f.ProbeSize(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(fallbackSizeBytes), size)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "document body")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(zap.NewNop())
	data, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("document body"), data)
}

func TestDownloadRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(zap.NewNop())
	_, err := f.Download(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	f := NewHTTPFetcher(zap.NewNop())
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/files/policy.pdf", "policy.pdf"},
		{"https://example.com/files/policy.pdf?sig=abc&expires=123", "policy.pdf"},
		{"https://example.com/", "document.pdf"},
		{"https://example.com", "document.pdf"},
		{"https://example.com/files/terms", "terms.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.FileName(tt.url), tt.url)
	}
}
