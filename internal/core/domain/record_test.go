package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Accessors(t *testing.T) {
	rec := Record{
		"date":          "2024-01-02",
		"user_id":       "U1",
		"channel_id":    "C1",
		"messages":      float64(12),
		"is_active":     true,
		"num_reactions": json.Number("4"),
	}

	assert.Equal(t, "2024-01-02", rec.Date())
	assert.Equal(t, "U1", rec.EntityID(KindMembers))
	assert.Equal(t, "C1", rec.EntityID(KindChannels))
	assert.Equal(t, "12", rec.String("messages"))
	assert.Equal(t, "true", rec.String("is_active"))
	assert.Equal(t, "4", rec.String("num_reactions"))
	assert.Equal(t, "", rec.String("missing"))
}

func TestEnrichedRecord_MarshalJSON_NullAttachment(t *testing.T) {
	rec := EnrichedRecord{Fields: Record{"user_id": "U1"}}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"U1","ENRICHED":null}`, string(data))
}

func TestEnrichedRecord_RoundTrip(t *testing.T) {
	rec := EnrichedRecord{
		Fields:   Record{"user_id": "U1", "date": "2024-01-01"},
		Enriched: Detail{"real_name": "Ada", "profile": map[string]any{"title": "Eng"}},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded EnrichedRecord
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "U1", decoded.Fields.String("user_id"))
	assert.NotContains(t, decoded.Fields, EnrichedKey)
	require.NotNil(t, decoded.Enriched)
	assert.Equal(t, "Ada", decoded.Enriched["real_name"])
}

func TestEnrichedRecord_UnmarshalJSON_NullAttachment(t *testing.T) {
	var decoded EnrichedRecord
	require.NoError(t, json.Unmarshal([]byte(`{"user_id":"U1","ENRICHED":null}`), &decoded))

	assert.Nil(t, decoded.Enriched)
	assert.Len(t, decoded.Fields, 1)
}

func TestDetail_Failed(t *testing.T) {
	assert.True(t, NewDetailError(assert.AnError).Failed())
	assert.False(t, Detail{"error": "x", "id": "U1"}.Failed())
	assert.False(t, Detail(nil).Failed())
	assert.False(t, Detail{"id": "U1"}.Failed())
}
