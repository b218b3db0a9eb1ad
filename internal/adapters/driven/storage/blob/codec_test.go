package blob

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

func sampleRecords() []domain.EnrichedRecord {
	return []domain.EnrichedRecord{
		{
			Fields:   domain.Record{"date": "2024-01-01", "user_id": "U1", "messages_posted_count": json.Number("3")},
			Enriched: domain.Detail{"real_name": "Ada"},
		},
		{
			Fields: domain.Record{"date": "2024-01-01", "user_id": "U2"},
		},
	}
}

func TestEncode_DecodePreservesEnrichment(t *testing.T) {
	data, err := Encode(sampleRecords())
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "U1", got[0].Fields.String("user_id"))
	assert.Equal(t, "3", got[0].Fields.String("messages_posted_count"))
	assert.Equal(t, "Ada", got[0].Enriched["real_name"])
	assert.Nil(t, got[1].Enriched)
	assert.NotContains(t, got[1].Fields, domain.EnrichedKey)
}

func TestEncode_WritesOneLinePerRecord(t *testing.T) {
	data, err := Encode(sampleRecords())
	require.NoError(t, err)

	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	var plain bytes.Buffer
	_, err = plain.ReadFrom(zr)
	require.NoError(t, err)

	lines := bytes.Split(plain.Bytes(), []byte{'\n'})
	assert.Len(t, lines, 2)
	assert.Contains(t, string(lines[1]), `"ENRICHED":null`)
}

func TestDecode_SkipsBlankLines(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte("\n{\"user_id\":\"U1\"}\n\n   \n{\"user_id\":\"U2\"}\n"))
	require.NoError(t, zw.Close())

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDecode_EmptyFile(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDecode_NotGzip(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte(`{"user_id":"U1"}`)))
	assert.Error(t, err)
}

func TestDecode_MalformedLine(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte("{\"ok\":1}\nnot json\n"))
	require.NoError(t, zw.Close())

	_, err := Decode(&buf)
	assert.ErrorContains(t, err, "line 2")
}
