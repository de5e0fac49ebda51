// Package file provides a cache store that keeps one JSON file per entry.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/spf13/afero"
)

const (
	valueExt   = ".json"
	invalidExt = ".invalid"
)

// Store implements ports.Store and ports.Invalidator on a filesystem.
// Values are stored as JSON, so they come back JSON-normalized.
type Store struct {
	fs       afero.Fs
	BasePath string
}

type Option func(*Store)

// WithFs replaces the OS filesystem, e.g. with afero.NewMemMapFs() in tests.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) {
		s.fs = fs
	}
}

// New creates a new Store rooted at basePath.
// If basePath is empty, it defaults to ".espalier/cache".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".espalier", "cache")
	}
	s := &Store{fs: afero.NewOsFs(), BasePath: basePath}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(fp ports.Fingerprint, ext string) (string, error) {
	name := string(fp)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid fingerprint %q", name)
	}
	return filepath.Join(s.BasePath, name+ext), nil
}

// consumeMarker reports domain.ErrInvalidated once per invalidation.
func (s *Store) consumeMarker(fp ports.Fingerprint) error {
	marker, err := s.path(fp, invalidExt)
	if err != nil {
		return err
	}
	err = s.fs.Remove(marker)
	if err == nil {
		return domain.ErrInvalidated
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to check invalidation marker: %w", err)
}

// Exists reports whether a value is stored for fp.
func (s *Store) Exists(ctx context.Context, fp ports.Fingerprint) (bool, error) {
	if err := s.consumeMarker(fp); err != nil {
		return false, err
	}
	p, err := s.path(fp, valueExt)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, p)
}

// Get retrieves the value stored for fp.
func (s *Store) Get(ctx context.Context, fp ports.Fingerprint) (any, error) {
	if err := s.consumeMarker(fp); err != nil {
		return nil, err
	}
	p, err := s.path(fp, valueExt)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return value, nil
}

// Set writes value for fp atomically: the JSON is written to a temporary
// file in the same directory and renamed over the destination.
func (s *Store) Set(ctx context.Context, fp ports.Fingerprint, value any) error {
	dest, err := s.path(fp, valueExt)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cached value: %w", err)
	}

	if err := s.fs.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure cache directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.BasePath, "tmp-*"+valueExt)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Rename cannot replace an existing file on Windows.
	if ok, _ := afero.Exists(s.fs, dest); ok {
		if err := s.fs.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing cache file: %w", err)
		}
	}
	if err := s.fs.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	if marker, err := s.path(fp, invalidExt); err == nil {
		_ = s.fs.Remove(marker)
	}
	return nil
}

// Invalidate removes the entry for fp and leaves a marker file so the next
// access reports domain.ErrInvalidated.
func (s *Store) Invalidate(ctx context.Context, fp ports.Fingerprint) error {
	p, err := s.path(fp, valueExt)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	if err := s.fs.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure cache directory: %w", err)
	}
	marker, _ := s.path(fp, invalidExt)
	return afero.WriteFile(s.fs, marker, nil, 0644)
}

// List returns the fingerprints that currently hold a value.
func (s *Store) List(ctx context.Context) ([]ports.Fingerprint, error) {
	entries, err := afero.ReadDir(s.fs, s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []ports.Fingerprint{}, nil
		}
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}

	fps := []ports.Fingerprint{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != valueExt || strings.HasPrefix(name, "tmp-") {
			continue
		}
		fps = append(fps, ports.Fingerprint(strings.TrimSuffix(name, valueExt)))
	}
	return fps, nil
}

// Clear removes the cache directory.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.fs.RemoveAll(s.BasePath); err != nil {
		return fmt.Errorf("failed to clear cache directory: %w", err)
	}
	return nil
}
