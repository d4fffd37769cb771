// Package capture fetches still images from cameras.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultTimeout bounds a single capture request.
const DefaultTimeout = 5 * time.Second

// maxImageSize guards against cameras streaming instead of returning a still.
const maxImageSize = 16 << 20

// HTTPSource captures a JPEG from a camera's /capture endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for url. A non-positive timeout uses DefaultTimeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// URL returns the capture endpoint.
func (s *HTTPSource) URL() string {
	return s.url
}

// Capture fetches one image. Non-2xx responses and empty bodies are errors.
func (s *HTTPSource) Capture(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build capture request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to capture image from %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http %d GET %s: %s", resp.StatusCode, s.url, strings.TrimSpace(string(msg)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("image from %s exceeds %d bytes", s.url, maxImageSize)
	}
	if len(data) == 0 {
		return nil, errors.New("camera returned an empty image")
	}

	return data, nil
}

// FileSource replays a single image from disk, for testing a deployment without a camera.
type FileSource struct {
	path string
}

// NewFileSource creates a source that always returns the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Capture reads the file.
func (s *FileSource) Capture(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", s.path, err)
	}
	return data, nil
}
