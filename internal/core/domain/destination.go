package domain

// RecordType selects the destination endpoint for a payload.
type RecordType string

// Destination record types.
const (
	RecordTypeEvent RecordType = "event"
	RecordTypeUser  RecordType = "user"
	RecordTypeGroup RecordType = "group"
)

// Payload is one destination record produced by a transform.
// The concrete type is one of Event, Profile or GroupProfile.
type Payload interface {
	RecordType() RecordType
}

// Event is an activity event.
// Properties never carry the ENRICHED attachment.
type Event struct {
	Name       string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// RecordType implements Payload.
func (Event) RecordType() RecordType { return RecordTypeEvent }

// Profile is a user profile update.
// Set only holds scalar values.
type Profile struct {
	DistinctID string         `json:"$distinct_id"`
	Set        map[string]any `json:"$set"`
}

// RecordType implements Payload.
func (Profile) RecordType() RecordType { return RecordTypeUser }

// GroupProfile is a profile keyed by a non-user entity.
type GroupProfile struct {
	GroupKey string         `json:"$group_key"`
	GroupID  string         `json:"$group_id"`
	Set      map[string]any `json:"$set"`
}

// RecordType implements Payload.
func (GroupProfile) RecordType() RecordType { return RecordTypeGroup }

// HeavyObjects is the shared context handed to every transform of one load batch.
// It is built once per batch so the lookup table is not re-fetched per file.
type HeavyObjects struct {
	// Kind is the entity kind being loaded.
	Kind EntityKind

	// Lookup maps entity ID to its directory entry.
	Lookup map[string]Entity

	// DisplayPrefix prefixes lookup-derived display properties.
	DisplayPrefix string

	// GroupKey is the destination group key for channel payloads.
	GroupKey string

	// ManagerField is the custom profile field holding a manager's user ID.
	ManagerField string

	// FieldLabels maps custom profile field IDs to readable labels.
	FieldLabels map[string]string
}

// TransformFunc converts one enriched record into a destination payload.
// It must be pure; a nil result skips the record.
type TransformFunc func(rec EnrichedRecord, heavy *HeavyObjects) Payload
