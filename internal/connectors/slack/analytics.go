package slack

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

const analyticsMethod = "admin.analytics.getFile"

// maxLineSize bounds one JSONL line in an analytics file.
const maxLineSize = 4 << 20

// analyticsType maps an entity kind to the getFile "type" parameter.
func analyticsType(kind domain.EntityKind) (string, error) {
	switch kind {
	case domain.KindMembers:
		return "member", nil
	case domain.KindChannels:
		return "public_channel", nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownPipeline, kind)
	}
}

// FetchDailyAnalytics returns the analytics records of every day in [start, end].
// Days without a file contribute no records. A day that stays rate limited
// after all retries fails the call with an error wrapping domain.ErrRateLimited.
func (c *Client) FetchDailyAnalytics(ctx context.Context, start, end time.Time, kind domain.EntityKind) ([]domain.Record, error) {
	var records []domain.Record
	for _, day := range (domain.DateRange{Start: domain.Day(start), End: domain.Day(end)}).Days() {
		err := c.StreamDailyAnalytics(ctx, day, kind, func(r domain.Record) error {
			records = append(records, r)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s analytics for %s: %w", kind, day.Format(domain.DateLayout), err)
		}
	}
	return records, nil
}

// StreamDailyAnalytics calls fn for every record of one day's analytics file.
// A rate limited day is retried in place after the backoff.
func (c *Client) StreamDailyAnalytics(ctx context.Context, day time.Time, kind domain.EntityKind, fn func(domain.Record) error) error {
	typ, err := analyticsType(kind)
	if err != nil {
		return err
	}
	params := url.Values{
		"type": {typ},
		"date": {day.Format(domain.DateLayout)},
	}

	err = c.retryRateLimited(ctx, func() error {
		if err := c.limiter.WaitAnalytics(ctx); err != nil {
			return err
		}
		return c.streamFile(ctx, params, fn)
	})
	if IsDataUnavailable(err) {
		logger.Debug("no %s analytics file for %s: %v", kind, params.Get("date"), err)
		return nil
	}
	return err
}

// streamFile downloads one analytics file. Errors come back as a JSON envelope,
// data as a gzip-compressed JSONL body.
func (c *Client) streamFile(ctx context.Context, params url.Values, fn func(domain.Record) error) error {
	resp, err := c.do(ctx, domain.RoleUser, http.MethodGet, analyticsMethod, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	br := bufio.NewReader(resp.Body)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("slack: read %s: %w", analyticsMethod, err)
	}
	if len(magic) < 2 || magic[0] != 0x1f || magic[1] != 0x8b {
		body, readErr := io.ReadAll(br)
		if readErr != nil {
			return fmt.Errorf("slack: read %s: %w", analyticsMethod, readErr)
		}
		if envErr := checkEnvelope(analyticsMethod, resp, body); envErr != nil {
			return envErr
		}
		return &APIError{Method: analyticsMethod, StatusCode: resp.StatusCode, Code: "unexpected_body"}
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		return fmt.Errorf("slack: open analytics file: %w", err)
	}
	defer zr.Close()

	return decodeLines(zr, fn)
}

// decodeLines parses newline-delimited JSON objects, skipping blank lines.
func decodeLines(r io.Reader, fn func(domain.Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("slack: decode analytics line: %w", err)
		}
		if err := fn(domain.Record(rec)); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("slack: read analytics file: %w", err)
	}
	return nil
}
