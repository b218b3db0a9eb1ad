package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// Ensure GCS implements the interface.
var _ driven.BlobStore = (*GCS)(nil)

const gcsScheme = "gs://"

// ErrInvalidBasePath indicates a malformed gs://bucket/prefix value.
var ErrInvalidBasePath = errors.New("gcs base path must look like gs://bucket[/prefix]")

// GCS stores day files as objects in a Cloud Storage bucket.
type GCS struct {
	svc    *storage.Service
	bucket string
	prefix string
}

// ParseBasePath splits gs://bucket/prefix into bucket and prefix.
func ParseBasePath(base string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(base, gcsScheme) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidBasePath, base)
	}
	rest := strings.Trim(strings.TrimPrefix(base, gcsScheme), "/")
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidBasePath, base)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// NewGCS creates a Cloud Storage store for basePath.
// Credentials come from the environment unless opts override them.
func NewGCS(ctx context.Context, basePath string, opts ...option.ClientOption) (*GCS, error) {
	bucket, prefix, err := ParseBasePath(basePath)
	if err != nil {
		return nil, err
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}
	return &GCS{svc: svc, bucket: bucket, prefix: prefix}, nil
}

// object returns the object name for a relative or fully-qualified path.
func (g *GCS) object(p string) string {
	bucketPrefix := gcsScheme + g.bucket + "/"
	if strings.HasPrefix(p, bucketPrefix) {
		return strings.TrimPrefix(p, bucketPrefix)
	}
	if g.prefix == "" {
		return strings.TrimPrefix(p, "/")
	}
	return path.Join(g.prefix, p)
}

// ResolveFullPath returns gs://bucket/prefix/path.
func (g *GCS) ResolveFullPath(p string) string {
	return gcsScheme + g.bucket + "/" + g.object(p)
}

// Exists reports whether the object is present.
func (g *GCS) Exists(ctx context.Context, p string) (bool, error) {
	_, err := g.svc.Objects.Get(g.bucket, g.object(p)).Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("gcs: stat %s: %w", g.ResolveFullPath(p), err)
}

// Write uploads the encoded records. Object writes are atomic.
func (g *GCS) Write(ctx context.Context, p string, records []domain.EnrichedRecord) (string, error) {
	data, err := Encode(records)
	if err != nil {
		return "", err
	}
	obj := &storage.Object{Name: g.object(p), ContentType: "application/gzip"}
	if _, err := g.svc.Objects.Insert(g.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType("application/gzip")).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("gcs: upload %s: %w", g.ResolveFullPath(p), err)
	}
	return g.ResolveFullPath(p), nil
}

// Read downloads and decodes the object.
func (g *GCS) Read(ctx context.Context, p string) ([]domain.EnrichedRecord, error) {
	resp, err := g.svc.Objects.Get(g.bucket, g.object(p)).Context(ctx).Download()
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", g.ResolveFullPath(p), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("gcs: download %s: %w", g.ResolveFullPath(p), err)
	}
	defer resp.Body.Close()

	records, err := Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.ResolveFullPath(p), err)
	}
	return records, nil
}

// Delete removes the object. Failures are logged.
func (g *GCS) Delete(ctx context.Context, p string) {
	if err := g.svc.Objects.Delete(g.bucket, g.object(p)).Context(ctx).Do(); err != nil {
		logger.Warn("delete %s: %v", g.ResolveFullPath(p), err)
	}
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
