package blob

import (
	"context"

	"github.com/spf13/afero"
	"google.golang.org/api/option"

	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// DefaultRoot is the local root used when none is configured.
const DefaultRoot = "data"

// Config selects and configures the backend.
type Config struct {
	// Root is the local directory for day files.
	Root string

	// GCSBasePath, when set, selects Cloud Storage (gs://bucket/prefix).
	GCSBasePath string
}

// New returns the backend selected by cfg.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (driven.BlobStore, error) {
	if cfg.GCSBasePath != "" {
		store, err := NewGCS(ctx, cfg.GCSBasePath, opts...)
		if err != nil {
			return nil, err
		}
		logger.Debug("blob store: %s", cfg.GCSBasePath)
		return store, nil
	}

	root := cfg.Root
	if root == "" {
		root = DefaultRoot
	}
	store := NewLocal(afero.NewOsFs(), root)
	logger.Debug("blob store: %s", store.Root())
	return store, nil
}
