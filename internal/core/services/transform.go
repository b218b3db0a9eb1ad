package services

import (
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// Destination event names.
const (
	EventMemberActivity  = "member activity"
	EventChannelActivity = "channel activity"
)

// Transforms is the pair of transforms used by one entity-pipeline.
type Transforms struct {
	Event       domain.TransformFunc
	Profile     domain.TransformFunc
	ProfileType domain.RecordType
}

// TransformsFor returns the transforms for kind.
func TransformsFor(kind domain.EntityKind) Transforms {
	if kind == domain.KindChannels {
		return Transforms{Event: ChannelEvent, Profile: ChannelGroupProfile, ProfileType: domain.RecordTypeGroup}
	}
	return Transforms{Event: MemberEvent, Profile: MemberProfile, ProfileType: domain.RecordTypeUser}
}

// InsertID derives the destination idempotency key for one entity-day.
func InsertID(kind domain.EntityKind, date, id string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(string(kind)+"|"+date+"|"+id))
}

// MemberEvent builds a member activity event. The ENRICHED attachment is never copied.
func MemberEvent(rec domain.EnrichedRecord, heavy *domain.HeavyObjects) domain.Payload {
	id := rec.Fields.EntityID(domain.KindMembers)
	props, ok := eventProperties(rec.Fields, domain.KindMembers, id)
	if !ok {
		return nil
	}
	props["distinct_id"] = id
	props["$user_id"] = id

	if entity, found := lookup(heavy, id); found {
		p := prefix(heavy, "member")
		setIfNotEmpty(props, p+"_name", entity.Label())
		setIfNotEmpty(props, p+"_real_name", entity.RealName)
		setIfNotEmpty(props, p+"_title", entity.Title)
	}
	return domain.Event{Name: EventMemberActivity, Properties: props}
}

// ChannelEvent builds a channel activity event attributed to the channel group.
func ChannelEvent(rec domain.EnrichedRecord, heavy *domain.HeavyObjects) domain.Payload {
	id := rec.Fields.EntityID(domain.KindChannels)
	props, ok := eventProperties(rec.Fields, domain.KindChannels, id)
	if !ok {
		return nil
	}
	props["distinct_id"] = ""
	props[groupKey(heavy)] = id

	if entity, found := lookup(heavy, id); found {
		p := prefix(heavy, "channel")
		setIfNotEmpty(props, p+"_name", entity.Label())
		props[p+"_is_private"] = entity.IsPrivate
	}
	return domain.Event{Name: EventChannelActivity, Properties: props}
}

// MemberProfile builds a user profile from the directory entry and the detail attachment.
func MemberProfile(rec domain.EnrichedRecord, heavy *domain.HeavyObjects) domain.Payload {
	id := rec.Fields.EntityID(domain.KindMembers)
	if id == "" {
		return nil
	}

	set := map[string]any{}
	if entity, found := lookup(heavy, id); found {
		setIfNotEmpty(set, "$name", entity.Label())
		setIfNotEmpty(set, "$email", entity.Email)
		setIfNotEmpty(set, "real_name", entity.RealName)
		setIfNotEmpty(set, "title", entity.Title)
		set["deleted"] = entity.Deleted
	}
	if email := rec.Fields.String("email_address"); email != "" {
		set["$email"] = email
	}
	setIfNotEmpty(set, "last_active_date", rec.Fields.Date())

	if detail := rec.Enriched; detail != nil && !detail.Failed() {
		mergeScalars(set, detail)
		if profile, ok := detail["profile"].(map[string]any); ok {
			mergeScalars(set, profile)
			mergeCustomFields(set, profile, heavy)
		}
	}
	return domain.Profile{DistinctID: id, Set: stripNested(set)}
}

// ChannelGroupProfile builds a group profile keyed by the channel ID.
func ChannelGroupProfile(rec domain.EnrichedRecord, heavy *domain.HeavyObjects) domain.Payload {
	id := rec.Fields.EntityID(domain.KindChannels)
	if id == "" {
		return nil
	}

	set := map[string]any{}
	if entity, found := lookup(heavy, id); found {
		setIfNotEmpty(set, "$name", entity.Label())
		set["is_private"] = entity.IsPrivate
		set["is_archived"] = entity.Deleted
	}
	setIfNotEmpty(set, "last_active_date", rec.Fields.Date())

	if detail := rec.Enriched; detail != nil && !detail.Failed() {
		mergeScalars(set, detail)
		for _, key := range []string{"topic", "purpose"} {
			if nested, ok := detail[key].(map[string]any); ok {
				if v, ok := nested["value"].(string); ok && v != "" {
					set[key] = v
				}
			}
		}
	}
	return domain.GroupProfile{GroupKey: groupKey(heavy), GroupID: id, Set: stripNested(set)}
}

// eventProperties copies the record's metric fields and adds the time and insert ID.
func eventProperties(fields domain.Record, kind domain.EntityKind, id string) (map[string]any, bool) {
	if id == "" {
		return nil, false
	}
	date := fields.Date()
	day, err := domain.ParseDate(date)
	if err != nil {
		return nil, false
	}

	props := make(map[string]any, len(fields)+6)
	for k, v := range fields {
		if k == domain.EnrichedKey {
			continue
		}
		props[k] = v
	}
	props["time"] = day.Unix()
	props["$insert_id"] = InsertID(kind, date, id)
	return props, true
}

// mergeCustomFields flattens profile.fields into set, keyed by label when known.
// The manager field is resolved to the referenced member's display name.
func mergeCustomFields(set map[string]any, profile map[string]any, heavy *domain.HeavyObjects) {
	fields, ok := profile["fields"].(map[string]any)
	if !ok {
		return
	}
	for fieldID, raw := range fields {
		field, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		value, ok := field["value"].(string)
		if !ok || value == "" {
			continue
		}

		key := fieldID
		if heavy != nil {
			if label, ok := heavy.FieldLabels[fieldID]; ok && label != "" {
				key = label
			}
		}

		if heavy != nil && heavy.ManagerField != "" && fieldID == heavy.ManagerField {
			set["manager_id"] = value
			if manager, found := lookup(heavy, value); found {
				value = manager.Label()
			}
			key = "manager"
		}
		set[key] = value
	}
}

// mergeScalars copies the scalar values of src into dst without overwriting set keys.
func mergeScalars(dst map[string]any, src map[string]any) {
	for k, v := range src {
		if !isScalar(v) {
			continue
		}
		if _, exists := dst[k]; exists {
			continue
		}
		dst[k] = v
	}
}

// stripNested drops arrays, objects and nulls, which profile $set cannot hold.
func stripNested(set map[string]any) map[string]any {
	for k, v := range set {
		if !isScalar(v) {
			delete(set, k)
		}
	}
	return set
}

func isScalar(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer, reflect.Interface:
		return false
	default:
		return true
	}
}

func lookup(heavy *domain.HeavyObjects, id string) (domain.Entity, bool) {
	if heavy == nil || heavy.Lookup == nil {
		return domain.Entity{}, false
	}
	e, ok := heavy.Lookup[id]
	return e, ok
}

func prefix(heavy *domain.HeavyObjects, fallback string) string {
	if heavy != nil && heavy.DisplayPrefix != "" {
		return heavy.DisplayPrefix
	}
	return fallback
}

func groupKey(heavy *domain.HeavyObjects) string {
	if heavy != nil && heavy.GroupKey != "" {
		return heavy.GroupKey
	}
	return domain.KindChannels.IDField()
}

func setIfNotEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
