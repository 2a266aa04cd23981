// Package storage persists imaging artifacts: uploaded MRI scans and the
// heatmap and mask images derived from them. It defines the ArtifactStore
// interface, a disk-backed implementation rooted at the configured upload
// directory, and an in-memory implementation for testing.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrMissingName      = errors.New("artifact name is required")
	ErrInvalidName      = errors.New("artifact name contains invalid path elements")
	ErrInvalidKind      = errors.New("artifact kind is not allowed")
)

// ---------------------------------------------------------------------------
// Artifact kinds
// ---------------------------------------------------------------------------

// Artifact kinds map to subdirectories under the store root.
const (
	KindScan    = "scans"
	KindHeatmap = "heatmaps"
	KindMask    = "masks"
)

var allowedKinds = map[string]bool{
	KindScan:    true,
	KindHeatmap: true,
	KindMask:    true,
}

// AllowedImageExtensions lists the upload file extensions accepted for MRI
// scan images.
var AllowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ---------------------------------------------------------------------------
// ArtifactStore interface
// ---------------------------------------------------------------------------

// ArtifactStore defines the contract for artifact storage backends. Save
// returns a store-relative path ("scans/<name>") that callers persist and
// later pass to Open and Delete.
type ArtifactStore interface {
	Save(ctx context.Context, kind, name string, content io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	// Delete removes an artifact. A missing artifact is not an error:
	// cascade deletes must succeed even when files were already cleaned up.
	Delete(ctx context.Context, path string) error
}

func validateName(kind, name string) error {
	if !allowedKinds[kind] {
		return ErrInvalidKind
	}
	if name == "" {
		return ErrMissingName
	}
	if strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return ErrInvalidName
	}
	return nil
}

// ---------------------------------------------------------------------------
// Disk implementation
// ---------------------------------------------------------------------------

// DiskStore stores artifacts as files under a root directory, one
// subdirectory per kind.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root and kind subdirectories if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	for kind := range allowedKinds {
		if err := os.MkdirAll(filepath.Join(root, kind), 0o755); err != nil {
			return nil, fmt.Errorf("create artifact directory %s: %w", kind, err)
		}
	}
	return &DiskStore{root: root}, nil
}

// Root returns the directory the store writes under.
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) Save(_ context.Context, kind, name string, content io.Reader) (string, error) {
	if err := validateName(kind, name); err != nil {
		return "", err
	}

	rel := filepath.Join(kind, name)
	abs := filepath.Join(s.root, rel)

	// Write to a temp file first so a partially written artifact is never
	// visible under its final name.
	tmp, err := os.CreateTemp(filepath.Join(s.root, kind), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write artifact %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close artifact %s: %w", rel, err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finalize artifact %s: %w", rel, err)
	}

	return filepath.ToSlash(rel), nil
}

func (s *DiskStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("open artifact %s: %w", path, err)
	}
	return f, nil
}

func (s *DiskStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat artifact %s: %w", path, err)
	}
	return true, nil
}

func (s *DiskStore) Delete(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

// MemStore is a thread-safe, in-memory ArtifactStore for testing.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Save(_ context.Context, kind, name string, content io.Reader) (string, error) {
	if err := validateName(kind, name); err != nil {
		return "", err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read artifact content: %w", err)
	}

	rel := kind + "/" + name
	s.mu.Lock()
	s.blobs[rel] = data
	s.mu.Unlock()
	return rel, nil
}

func (s *MemStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[path]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	_, ok := s.blobs[path]
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	delete(s.blobs, path)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored artifacts. Test helper.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
