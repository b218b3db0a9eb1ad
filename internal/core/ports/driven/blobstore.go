package driven

import (
	"context"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// RecordReader reads a persisted day file back into records.
// The path may be relative or the full path returned by BlobStore.Write.
type RecordReader interface {
	Read(ctx context.Context, path string) ([]domain.EnrichedRecord, error)
}

// BlobStore persists compressed line-delimited JSON day files.
// The backend (local disk or cloud object storage) is chosen once at startup
// and is transparent to callers.
type BlobStore interface {
	RecordReader

	// Exists reports whether a day file is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Write serialises records and stores them atomically at path.
	// Returns the fully-qualified address of the written file.
	Write(ctx context.Context, path string, records []domain.EnrichedRecord) (string, error)

	// Delete removes the file at path. Failures are logged, never returned.
	Delete(ctx context.Context, path string)

	// ResolveFullPath maps a relative path to its fully-qualified address
	// without performing I/O.
	ResolveFullPath(path string) string
}
