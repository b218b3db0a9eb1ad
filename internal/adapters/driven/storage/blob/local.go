package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// Ensure Local implements the interface.
var _ driven.BlobStore = (*Local)(nil)

// Local stores day files under a root directory.
type Local struct {
	fs   afero.Fs
	root string
}

// NewLocal creates a local store rooted at root on fs.
func NewLocal(fs afero.Fs, root string) *Local {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Local{fs: fs, root: filepath.Clean(root)}
}

// Root returns the absolute root directory.
func (l *Local) Root() string {
	return l.root
}

// ResolveFullPath returns the absolute path for path.
func (l *Local) ResolveFullPath(path string) string {
	return filepath.Join(l.root, l.relative(path))
}

// relative strips the root from an already-resolved path.
func (l *Local) relative(path string) string {
	if filepath.IsAbs(path) {
		if rel, err := filepath.Rel(l.root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return filepath.FromSlash(path)
}

// Exists reports whether a file is present at path.
func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	ok, err := afero.Exists(l.fs, l.ResolveFullPath(path))
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return ok, nil
}

// Write encodes records into a temporary file then renames it into place.
func (l *Local) Write(_ context.Context, path string, records []domain.EnrichedRecord) (string, error) {
	data, err := Encode(records)
	if err != nil {
		return "", err
	}

	full := l.ResolveFullPath(path)
	dir := filepath.Dir(full)
	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(l.fs, dir, ".tmp-"+filepath.Base(full)+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = l.fs.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = l.fs.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := l.fs.Rename(tmpName, full); err != nil {
		_ = l.fs.Remove(tmpName)
		return "", fmt.Errorf("rename into %s: %w", full, err)
	}
	return full, nil
}

// Read decodes the file at path.
func (l *Local) Read(_ context.Context, path string) ([]domain.EnrichedRecord, error) {
	data, err := afero.ReadFile(l.fs, l.ResolveFullPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	records, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Delete removes the file at path. Failures are logged.
func (l *Local) Delete(_ context.Context, path string) {
	if err := l.fs.Remove(l.ResolveFullPath(path)); err != nil {
		logger.Warn("delete %s: %v", path, err)
	}
}
