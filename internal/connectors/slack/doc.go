// Package slack implements the source client over the Slack Web API.
//
// Two credentials are used: the bot token for directory listings and
// per-entity detail lookups, and an admin user token for the daily
// analytics files (admin.analytics.getFile).
//
// Rate limiting follows Slack's tiers. Directory pagination is sequential
// by cursor, detail lookups go through their own token bucket, and
// analytics requests are separated by a randomized delay. A ratelimited
// response triggers a long backoff and a retry of the same request.
package slack
