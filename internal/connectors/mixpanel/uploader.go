package mixpanel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// Ensure Uploader implements the interface.
var _ driven.Uploader = (*Uploader)(nil)

// Errors returned before any request is sent.
var (
	ErrNoTransform     = errors.New("mixpanel: transform is required")
	ErrMissingGroupKey = errors.New("mixpanel: group uploads require a group key")
)

// RequestError is a rejected ingestion request.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("mixpanel: %s rejected with HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Uploader sends day files to Mixpanel.
type Uploader struct {
	cfg    Config
	reader driven.RecordReader
	http   *http.Client
}

// NewUploader creates an uploader that reads files through reader.
func NewUploader(cfg Config, reader driven.RecordReader) *Uploader {
	cfg = cfg.withDefaults()
	return &Uploader{
		cfg:    cfg,
		reader: reader,
		http:   &http.Client{Timeout: cfg.Timeout},
	}
}

// batch is one encoded request body.
type batch struct {
	items [][]byte
	size  int
}

// Upload transforms every record in files and sends them in batches.
// Any failed batch fails the whole call.
func (u *Uploader) Upload(ctx context.Context, files []string, opts driven.UploadOptions) (*driven.UploadResult, error) {
	if opts.Transform == nil {
		return nil, ErrNoTransform
	}
	if opts.RecordType == domain.RecordTypeGroup && opts.GroupKey == "" {
		return nil, ErrMissingGroupKey
	}
	if err := u.cfg.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	result := &driven.UploadResult{Files: len(files)}
	var sent atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Workers)

	cur := &batch{}
	flush := func() {
		if len(cur.items) == 0 {
			return
		}
		b := cur
		cur = &batch{}
		result.Batches++
		g.Go(func() error {
			if err := u.send(gctx, opts.RecordType, b); err != nil {
				return err
			}
			sent.Add(int64(len(b.items)))
			return nil
		})
	}

	produceErr := func() error {
		for _, file := range files {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := u.reader.Read(gctx, file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			for _, rec := range records {
				payload := opts.Transform(rec, opts.Heavy)
				if payload == nil {
					result.Skipped++
					continue
				}
				item, err := u.encode(payload)
				if err != nil {
					return err
				}
				if len(cur.items) >= u.cfg.BatchSize || (len(cur.items) > 0 && cur.size+len(item)+1 > u.cfg.MaxBatchBytes) {
					flush()
				}
				cur.items = append(cur.items, item)
				cur.size += len(item) + 1
			}
		}
		flush()
		return nil
	}()

	waitErr := g.Wait()
	if err := errors.Join(produceErr, waitErr); err != nil {
		return nil, err
	}

	result.Records = int(sent.Load())
	result.Duration = time.Since(started)
	logger.Debug("uploaded %d %s records in %d batches (%d skipped) in %s",
		result.Records, opts.RecordType, result.Batches, result.Skipped, result.Duration)
	return result, nil
}

// encode renders payload in the endpoint's wire shape.
func (u *Uploader) encode(p domain.Payload) ([]byte, error) {
	var wire any
	switch v := p.(type) {
	case domain.Event:
		wire = v
	case domain.Profile:
		wire = map[string]any{"$token": u.cfg.Token, "$distinct_id": v.DistinctID, "$set": v.Set}
	case domain.GroupProfile:
		wire = map[string]any{"$token": u.cfg.Token, "$group_key": v.GroupKey, "$group_id": v.GroupID, "$set": v.Set}
	default:
		return nil, fmt.Errorf("mixpanel: unsupported payload %T", p)
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("mixpanel: encode %s: %w", p.RecordType(), err)
	}
	return data, nil
}

func (u *Uploader) endpoint(rt domain.RecordType) (string, error) {
	host := u.cfg.Host()
	switch rt {
	case domain.RecordTypeEvent:
		q := url.Values{"strict": {"1"}}
		if u.cfg.ProjectID != "" {
			q.Set("project_id", u.cfg.ProjectID)
		}
		return host + "/import?" + q.Encode(), nil
	case domain.RecordTypeUser:
		return host + "/engage?verbose=1", nil
	case domain.RecordTypeGroup:
		return host + "/groups?verbose=1", nil
	default:
		return "", fmt.Errorf("mixpanel: unknown record type %q", rt)
	}
}

// send posts one batch as a gzip-compressed JSON array.
func (u *Uploader) send(ctx context.Context, rt domain.RecordType, b *batch) error {
	endpoint, err := u.endpoint(rt)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte{'['}); err != nil {
		return err
	}
	for i, item := range b.items {
		if i > 0 {
			if _, err := zw.Write([]byte{','}); err != nil {
				return err
			}
		}
		if _, err := zw.Write(item); err != nil {
			return err
		}
	}
	if _, err := zw.Write([]byte{']'}); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("mixpanel: compress batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept", "application/json")
	if rt == domain.RecordTypeEvent {
		if u.cfg.ServiceUser != "" {
			req.SetBasicAuth(u.cfg.ServiceUser, u.cfg.ServiceSecret)
		} else {
			req.SetBasicAuth(u.cfg.Token, "")
		}
	}

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("mixpanel: post %s: %w", rt, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("mixpanel: read response: %w", err)
	}
	return checkResponse(rt, resp.StatusCode, body)
}

// checkResponse accepts 2xx responses whose body reports success.
// /import answers {"code":200,...}; /engage and /groups answer {"status":1,...}.
func checkResponse(rt domain.RecordType, status int, body []byte) error {
	if status < 200 || status >= 300 {
		return &RequestError{Endpoint: string(rt), StatusCode: status, Body: string(bytes.TrimSpace(body))}
	}
	if rt == domain.RecordTypeEvent {
		if code := gjson.GetBytes(body, "code"); code.Exists() && code.Int() != http.StatusOK {
			return &RequestError{Endpoint: string(rt), StatusCode: int(code.Int()), Body: string(body)}
		}
		return nil
	}
	trimmed := bytes.TrimSpace(body)
	if string(trimmed) == "1" {
		return nil
	}
	if st := gjson.GetBytes(trimmed, "status"); st.Exists() && st.Int() == 1 {
		return nil
	}
	return &RequestError{Endpoint: string(rt), StatusCode: status, Body: string(trimmed)}
}
