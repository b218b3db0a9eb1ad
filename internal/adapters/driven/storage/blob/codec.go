package blob

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// maxLineSize bounds a single encoded record.
const maxLineSize = 16 << 20

// Encode renders records as newline-delimited JSON and gzip-compresses the result.
func Encode(records []domain.EnrichedRecord) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	for i, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		if i > 0 {
			if _, err := zw.Write([]byte{'\n'}); err != nil {
				return nil, err
			}
		}
		if _, err := zw.Write(line); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a gzip JSON-lines stream. Blank lines are skipped.
func Decode(r io.Reader) ([]domain.EnrichedRecord, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	records := []domain.EnrichedRecord{}
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec domain.EnrichedRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return records, nil
}
