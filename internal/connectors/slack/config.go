package slack

import (
	"math/rand"
	"time"
)

const (
	// DefaultBaseURL is the Slack Web API root.
	DefaultBaseURL = "https://slack.com/api/"

	// DefaultTimeout is the HTTP timeout. Analytics files can be large.
	DefaultTimeout = 2 * time.Minute

	// DefaultRateLimitBackoff is the sleep after a ratelimited response.
	DefaultRateLimitBackoff = 60 * time.Second

	// DefaultRateLimitRetries bounds same-request retries after rate limiting.
	DefaultRateLimitRetries = 3

	// DefaultDetailRate is the sustained rate for users.info / conversations.info (Tier 4 ~100/min).
	DefaultDetailRate = 1.5

	// DefaultUsersPageSize is the users.list page size.
	DefaultUsersPageSize = 200

	// DefaultChannelsPageSize is the conversations.list page size.
	DefaultChannelsPageSize = 1000
)

// Jitter is a randomized delay window.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

func (j Jitter) pick(rng *rand.Rand) time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rng.Int63n(int64(j.Max-j.Min)))
}

// DefaultAnalyticsJitter separates consecutive analytics requests.
var DefaultAnalyticsJitter = Jitter{Min: 1500 * time.Millisecond, Max: 3 * time.Second}

// Config holds Slack client settings.
type Config struct {
	// BotToken authenticates directory and detail calls.
	BotToken string

	// UserToken authenticates admin analytics calls.
	UserToken string

	// BaseURL overrides the API root, mostly for tests.
	BaseURL string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// DetailRate is the sustained requests/second for detail lookups.
	DetailRate float64

	// AnalyticsJitter is applied between analytics requests.
	AnalyticsJitter Jitter

	// RateLimitBackoff is the minimum sleep after a ratelimited response.
	RateLimitBackoff time.Duration

	// RateLimitRetries is how many times a ratelimited request is retried.
	// Zero means the default; negative disables retries.
	RateLimitRetries int
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.BaseURL[len(c.BaseURL)-1] != '/' {
		c.BaseURL += "/"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DetailRate <= 0 {
		c.DetailRate = DefaultDetailRate
	}
	if c.AnalyticsJitter == (Jitter{}) {
		c.AnalyticsJitter = DefaultAnalyticsJitter
	}
	if c.RateLimitBackoff <= 0 {
		c.RateLimitBackoff = DefaultRateLimitBackoff
	}
	switch {
	case c.RateLimitRetries == 0:
		c.RateLimitRetries = DefaultRateLimitRetries
	case c.RateLimitRetries < 0:
		c.RateLimitRetries = 0
	}
	return c
}
