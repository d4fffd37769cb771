// Package storage keeps the images that triggered an alert.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"firewatch/internal/config"
	"firewatch/internal/logger"
)

// LocalStore writes images to a directory served by the dashboard.
type LocalStore struct {
	imagesDir string
	baseURL   string
	maxBytes  int64
	mu        sync.Mutex
	logger    *logger.Logger
}

// NewLocalStore creates a store in cfg.ImageDirectory whose URLs point at cfg.PublicBaseURL.
func NewLocalStore(cfg *config.Config, logger *logger.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.ImageDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	return &LocalStore{
		imagesDir: cfg.ImageDirectory,
		baseURL:   strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:  cfg.MaxImageDirectorySize << 30,
		logger:    logger,
	}, nil
}

// Put saves data under name and returns the dashboard URL for it.
func (s *LocalStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	filename, err := cleanName(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fullpath := filepath.Join(s.imagesDir, filename)
	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image %s: %w", filename, err)
	}
	s.logger.Info("Saved image %s (%d bytes)", filename, len(data))

	if s.maxBytes > 0 {
		s.prune()
	}

	return s.baseURL + "/api/artifacts/view?name=" + url.QueryEscape(filename), nil
}

// Path returns the on-disk path of a stored image, rejecting names that escape the directory.
func (s *LocalStore) Path(name string) (string, error) {
	filename, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.imagesDir, filename), nil
}

// DirectorySize returns the total size of stored images in bytes.
func (s *LocalStore) DirectorySize() (int64, error) {
	files, err := s.listFiles()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, f := range files {
		total += f.size
	}
	return total, nil
}

type storedFile struct {
	name    string
	size    int64
	modTime int64
}

func (s *LocalStore) listFiles() ([]storedFile, error) {
	entries, err := os.ReadDir(s.imagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	files := make([]storedFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, storedFile{name: entry.Name(), size: info.Size(), modTime: info.ModTime().UnixNano()})
	}
	return files, nil
}

// prune deletes the oldest images until the directory fits in maxBytes.
func (s *LocalStore) prune() {
	files, err := s.listFiles()
	if err != nil {
		s.logger.Error("Error listing images for pruning: %v", err)
		return
	}

	var total int64
	for _, f := range files {
		total += f.size
	}
	if total <= s.maxBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime == files[j].modTime {
			return files[i].name < files[j].name
		}
		return files[i].modTime < files[j].modTime
	})

	removed := 0
	// never delete the newest file, it was just written
	for _, f := range files[:len(files)-1] {
		if total <= s.maxBytes {
			break
		}
		if err := os.Remove(filepath.Join(s.imagesDir, f.name)); err != nil {
			s.logger.Error("Error deleting image %s: %v", f.name, err)
			continue
		}
		total -= f.size
		removed++
	}

	if removed > 0 {
		s.logger.Warning("Image directory over limit, removed %d oldest images", removed)
	}
}

func cleanName(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	return base, nil
}
