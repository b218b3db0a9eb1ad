package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// listSpec describes one cursor-paginated directory method.
type listSpec struct {
	method   string
	field    string
	pageSize int
	params   url.Values
	parse    func(gjson.Result) domain.Entity
}

func listSpecFor(kind domain.EntityKind) (listSpec, error) {
	switch kind {
	case domain.KindMembers:
		return listSpec{
			method:   "users.list",
			field:    "members",
			pageSize: DefaultUsersPageSize,
			params:   url.Values{},
			parse:    parseMember,
		}, nil
	case domain.KindChannels:
		return listSpec{
			method:   "conversations.list",
			field:    "channels",
			pageSize: DefaultChannelsPageSize,
			params: url.Values{
				"types":            {"public_channel,private_channel"},
				"exclude_archived": {"false"},
			},
			parse: parseChannel,
		}, nil
	default:
		return listSpec{}, fmt.Errorf("%w: %q", domain.ErrUnknownPipeline, kind)
	}
}

// ListEntities returns the full directory for kind, following cursors until exhausted.
// The first successful listing is cached for the life of the client.
func (c *Client) ListEntities(ctx context.Context, kind domain.EntityKind) ([]domain.Entity, error) {
	c.mu.Lock()
	cached, ok := c.directory[kind]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	spec, err := listSpecFor(kind)
	if err != nil {
		return nil, err
	}

	var (
		entities []domain.Entity
		cursor   string
	)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		params := url.Values{}
		for k, v := range spec.params {
			params[k] = v
		}
		params.Set("limit", strconv.Itoa(spec.pageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var body []byte
		err := c.retryRateLimited(ctx, func() error {
			var callErr error
			body, callErr = c.call(ctx, domain.RoleBot, spec.method, params)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}

		gjson.GetBytes(body, spec.field).ForEach(func(_, v gjson.Result) bool {
			entities = append(entities, spec.parse(v))
			return true
		})

		cursor = gjson.GetBytes(body, "response_metadata.next_cursor").String()
		if cursor == "" {
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.directory[kind]; ok {
		return existing, nil
	}
	c.directory[kind] = entities
	logger.Debug("listed %d %s", len(entities), kind)
	return entities, nil
}

func parseMember(v gjson.Result) domain.Entity {
	attrs, _ := v.Value().(map[string]any)
	profile := v.Get("profile")
	realName := profile.Get("real_name").String()
	if realName == "" {
		realName = v.Get("real_name").String()
	}
	return domain.Entity{
		ID:          v.Get("id").String(),
		Name:        v.Get("name").String(),
		DisplayName: profile.Get("display_name").String(),
		RealName:    realName,
		Email:       profile.Get("email").String(),
		Title:       profile.Get("title").String(),
		Deleted:     v.Get("deleted").Bool(),
		Attributes:  attrs,
	}
}

func parseChannel(v gjson.Result) domain.Entity {
	attrs, _ := v.Value().(map[string]any)
	return domain.Entity{
		ID:         v.Get("id").String(),
		Name:       v.Get("name").String(),
		IsPrivate:  v.Get("is_private").Bool(),
		Deleted:    v.Get("is_archived").Bool(),
		Attributes: attrs,
	}
}

// GetEntityDetail looks up one member (users.info) or channel (conversations.info).
// Lookups share their own token bucket, separate from listing and analytics.
func (c *Client) GetEntityDetail(ctx context.Context, kind domain.EntityKind, id string) (domain.Detail, error) {
	var method, param, field string
	switch kind {
	case domain.KindMembers:
		method, param, field = "users.info", "user", "user"
	case domain.KindChannels:
		method, param, field = "conversations.info", "channel", "channel"
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPipeline, kind)
	}

	params := url.Values{param: {id}}
	if kind == domain.KindChannels {
		params.Set("include_num_members", "true")
	}

	var body []byte
	err := c.retryRateLimited(ctx, func() error {
		if err := c.limiter.WaitDetail(ctx); err != nil {
			return err
		}
		var callErr error
		body, callErr = c.call(ctx, domain.RoleBot, method, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	raw := gjson.GetBytes(body, field)
	if !raw.IsObject() {
		return nil, &APIError{Method: method, Code: "missing_" + field}
	}
	return decodeDetail(raw.Raw)
}

func decodeDetail(raw string) (domain.Detail, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var detail map[string]any
	if err := dec.Decode(&detail); err != nil {
		return nil, fmt.Errorf("decode detail: %w", err)
	}
	return domain.Detail(detail), nil
}

// ProfileFieldLabels maps custom profile field IDs to their labels (team.profile.get).
func (c *Client) ProfileFieldLabels(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	labels := c.labels
	c.mu.Unlock()
	if labels != nil {
		return labels, nil
	}

	body, err := c.call(ctx, domain.RoleBot, "team.profile.get", url.Values{})
	if err != nil {
		return nil, err
	}

	labels = map[string]string{}
	gjson.GetBytes(body, "profile.fields").ForEach(func(_, f gjson.Result) bool {
		if id := f.Get("id").String(); id != "" {
			labels[id] = f.Get("label").String()
		}
		return true
	})

	c.mu.Lock()
	c.labels = labels
	c.mu.Unlock()
	return labels, nil
}

// retryRateLimited re-runs fn after a ratelimited response, sleeping the
// configured backoff (or Retry-After when longer) between attempts.
func (c *Client) retryRateLimited(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		var rlErr *RateLimitError
		if !errors.As(err, &rlErr) || attempt >= c.cfg.RateLimitRetries {
			return err
		}

		wait := max(c.cfg.RateLimitBackoff, rlErr.RetryAfter)
		logger.Warn("%v; backing off %s (retry %d/%d)", rlErr, wait, attempt+1, c.cfg.RateLimitRetries)
		c.limiter.RecordRateLimit(wait)
		c.limiter.waitBackoff(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
}
