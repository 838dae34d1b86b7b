package artifact

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

// ErrNotFound is returned when a named artifact does not exist in the source.
var ErrNotFound = errors.New("artifact not found")

// Source opens named training artifacts.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FileSource reads artifacts from a local directory.
type FileSource struct {
	dir string
}

// NewFileSource constructs a directory backed source.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Open returns the named file under the source directory.
func (s *FileSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	clean := filepath.Clean("/" + name)
	f, err := os.Open(filepath.Join(s.dir, strings.TrimPrefix(clean, "/")))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("open artifact %s: %w", name, err)
	}
	return f, nil
}

// MemorySource keeps artifacts in memory. Useful for tests and local dev.
type MemorySource struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemorySource constructs an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{blobs: make(map[string][]byte)}
}

// Put stores an artifact.
func (s *MemorySource) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = append([]byte(nil), data...)
}

// Open returns a reader over the stored artifact.
func (s *MemorySource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*MemorySource)(nil)
)
