package domain

import "fmt"

// EntityKind identifies one entity-pipeline.
type EntityKind string

// Supported entity kinds.
const (
	// KindMembers covers workspace users.
	KindMembers EntityKind = "members"

	// KindChannels covers public and private channels.
	KindChannels EntityKind = "channels"
)

// PipelineAll runs every entity-pipeline in one request.
const PipelineAll = "all"

// AllKinds returns every entity kind in processing order.
func AllKinds() []EntityKind {
	return []EntityKind{KindMembers, KindChannels}
}

// IsValid returns true if the kind is recognised.
func (k EntityKind) IsValid() bool {
	switch k {
	case KindMembers, KindChannels:
		return true
	default:
		return false
	}
}

// IDField returns the record field holding the entity identifier.
func (k EntityKind) IDField() string {
	if k == KindChannels {
		return "channel_id"
	}
	return "user_id"
}

// ParsePipeline resolves a pipeline name into the kinds it covers.
func ParsePipeline(name string) ([]EntityKind, error) {
	if name == PipelineAll {
		return AllKinds(), nil
	}
	kind := EntityKind(name)
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, name)
	}
	return []EntityKind{kind}, nil
}

// CredentialRole selects which source credential is validated.
type CredentialRole string

// Credential roles.
const (
	// RoleBot is the bot token used for directory and detail lookups.
	RoleBot CredentialRole = "bot"

	// RoleUser is the admin user token used for analytics files.
	RoleUser CredentialRole = "user"
)

// Identity is the result of validating a credential.
type Identity struct {
	OK     bool   `json:"ok"`
	UserID string `json:"user_id,omitempty"`
	User   string `json:"user,omitempty"`
	TeamID string `json:"team_id,omitempty"`
	Team   string `json:"team,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Entity is one row of the source directory listing.
type Entity struct {
	// ID is the source identifier (U123 / C123).
	ID string

	// Name is the handle or channel name.
	Name string

	// DisplayName is the human-friendly label used in destination payloads.
	DisplayName string

	// RealName is the member's full name. Empty for channels.
	RealName string

	// Email is the member's address. Empty for channels.
	Email string

	// Title is the member's job title. Empty for channels.
	Title string

	// IsPrivate marks private channels.
	IsPrivate bool

	// Deleted marks deactivated members and archived channels.
	Deleted bool

	// Attributes holds the raw listing object.
	Attributes map[string]any
}

// Label returns the best display label for the entity.
func (e Entity) Label() string {
	switch {
	case e.DisplayName != "":
		return e.DisplayName
	case e.RealName != "":
		return e.RealName
	default:
		return e.Name
	}
}

// Detail is the deep lookup object for one entity.
// A failed lookup is represented by a Detail carrying only an "error" key.
type Detail map[string]any

// detailErrorKey marks a cached failed lookup.
const detailErrorKey = "error"

// NewDetailError wraps a lookup failure as a cacheable Detail.
func NewDetailError(err error) Detail {
	return Detail{detailErrorKey: err.Error()}
}

// Failed returns true if the detail records a lookup failure.
func (d Detail) Failed() bool {
	if d == nil {
		return false
	}
	_, ok := d[detailErrorKey]
	return ok && len(d) == 1
}
