package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// EnrichedKey is the field under which the detail attachment is serialised.
const EnrichedKey = "ENRICHED"

// Record is one raw analytics row for one entity on one day.
// It is produced by the source client and never mutated afterwards.
type Record map[string]any

// Date returns the record's YYYY-MM-DD date.
func (r Record) Date() string {
	return r.String("date")
}

// String returns a field rendered as a string, or "" if absent.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// EntityID returns the identifier field for kind.
func (r Record) EntityID(kind EntityKind) string {
	return r.String(kind.IDField())
}

// EnrichedRecord is a Record plus the optional detail attachment.
// Enriched is nil when the entity was not selected for enrichment.
type EnrichedRecord struct {
	Fields   Record
	Enriched Detail
}

// MarshalJSON flattens Fields and adds the ENRICHED attachment (null when absent).
func (r EnrichedRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		flat[k] = v
	}
	if r.Enriched == nil {
		flat[EnrichedKey] = nil
	} else {
		flat[EnrichedKey] = map[string]any(r.Enriched)
	}
	return json.Marshal(flat)
}

// UnmarshalJSON splits the ENRICHED attachment back out of the flat object.
func (r *EnrichedRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var flat map[string]any
	if err := dec.Decode(&flat); err != nil {
		return err
	}

	r.Enriched = nil
	if raw, ok := flat[EnrichedKey]; ok {
		if m, ok := raw.(map[string]any); ok {
			r.Enriched = Detail(m)
		}
		delete(flat, EnrichedKey)
	}
	r.Fields = Record(flat)
	return nil
}
