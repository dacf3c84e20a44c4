package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// fallbackSizeBytes is assumed when neither HEAD nor a ranged GET reveals
// the document size.
const fallbackSizeBytes = 25 << 20

const probeTimeout = 10 * time.Second

// HTTPFetcher resolves remote document references over HTTP(S).
type HTTPFetcher struct {
	client *http.Client
	logger *zap.Logger
}

func NewHTTPFetcher(logger *zap.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{},
		logger: logger,
	}
}

// ProbeSize estimates the document's byte size without a full download:
// HEAD Content-Length first, then a small ranged GET parsing Content-Range,
// then a fixed assumption.
func (f *HTTPFetcher) ProbeSize(ctx context.Context, rawURL string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode < 300 && resp.ContentLength > 0 {
			return resp.ContentLength, nil
		}
	} else {
		f.logger.Warn("HEAD size probe failed, trying ranged GET", zap.Error(err))
	}

	if size, ok := f.probeViaRange(ctx, rawURL); ok {
		return size, nil
	}
	f.logger.Warn("size probe inconclusive, assuming fallback size",
		zap.Int64("bytes", int64(fallbackSizeBytes)))
	return fallbackSizeBytes, nil
}

// probeViaRange requests the first KiB and reads the total from the
// Content-Range header of a 206 response.
func (f *HTTPFetcher) probeViaRange(ctx context.Context, rawURL string) (int64, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, false
	}
	req.Header.Set("Range", "bytes=0-1024")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusPartialContent {
		return 0, false
	}
	cr := resp.Header.Get("Content-Range")
	idx := strings.LastIndex(cr, "/")
	if idx < 0 {
		return 0, false
	}
	total, err := strconv.ParseInt(cr[idx+1:], 10, 64)
	if err != nil || total <= 0 {
		return 0, false
	}
	return total, true
}

// Download retrieves the full document bytes. The caller bounds the call
// with its tier timeout.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// FileName derives a clean file name from the reference URL: the last path
// element, query string stripped, defaulting to document.pdf and appending
// .pdf when extensionless.
func (f *HTTPFetcher) FileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "document.pdf"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = "document.pdf"
	}
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}
	if !strings.Contains(name, ".") {
		name += ".pdf"
	}
	return name
}
