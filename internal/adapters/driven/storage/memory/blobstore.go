package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/slackpanel/internal/adapters/driven/storage/blob"
	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// BlobPrefix is the scheme of full paths returned by BlobStore.
const BlobPrefix = "mem://"

// BlobStore is an in-memory implementation of driven.BlobStore.
// Files are held encoded, as the durable backends store them.
type BlobStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewBlobStore creates an empty in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{files: make(map[string][]byte)}
}

func (s *BlobStore) key(path string) string {
	return strings.TrimPrefix(path, BlobPrefix)
}

// ResolveFullPath returns mem://path.
func (s *BlobStore) ResolveFullPath(path string) string {
	return BlobPrefix + s.key(path)
}

// Exists reports whether a file is stored at path.
func (s *BlobStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[s.key(path)]
	return ok, nil
}

// Write encodes and stores records at path.
func (s *BlobStore) Write(_ context.Context, path string, records []domain.EnrichedRecord) (string, error) {
	data, err := blob.Encode(records)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[s.key(path)] = data
	return s.ResolveFullPath(path), nil
}

// Read decodes the file at path.
func (s *BlobStore) Read(_ context.Context, path string) ([]domain.EnrichedRecord, error) {
	s.mu.RLock()
	data, ok := s.files[s.key(path)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return blob.Decode(bytes.NewReader(data))
}

// Delete removes the file at path.
func (s *BlobStore) Delete(_ context.Context, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, s.key(path))
}

// Paths returns every stored relative path, sorted.
func (s *BlobStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
