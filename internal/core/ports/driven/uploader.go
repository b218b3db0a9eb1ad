package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// UploadOptions configures one batched upload call.
type UploadOptions struct {
	// RecordType selects the destination endpoint.
	RecordType domain.RecordType

	// GroupKey is required for group uploads.
	GroupKey string

	// Transform converts each record; nil results are skipped.
	Transform domain.TransformFunc

	// Heavy is handed unchanged to every Transform call.
	Heavy *domain.HeavyObjects
}

// UploadResult is the outcome of a successful upload call.
type UploadResult struct {
	Files    int
	Records  int
	Skipped  int
	Batches  int
	Duration time.Duration
}

// Uploader ingests day files into the analytics platform.
// Success or failure is signalled by the returned error.
type Uploader interface {
	Upload(ctx context.Context, files []string, opts UploadOptions) (*UploadResult, error)
}
