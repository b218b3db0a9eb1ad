package slack

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HeaderRetryAfter is the retry-after header (seconds).
const HeaderRetryAfter = "Retry-After"

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RateLimiter paces Slack requests.
// Detail lookups share a token bucket; analytics requests are separated by jitter.
// Both honour a backoff set by RecordRateLimit.
type RateLimiter struct {
	mu      sync.Mutex
	detail  *rate.Limiter
	retryAt time.Time
	jitter  Jitter
	rng     *rand.Rand
	started bool
	sleep   Sleeper
	now     func() time.Time
}

// NewRateLimiter creates a limiter with detailRate requests/second for detail lookups.
func NewRateLimiter(detailRate float64, jitter Jitter) *RateLimiter {
	return &RateLimiter{
		detail: rate.NewLimiter(rate.Limit(detailRate), 1),
		jitter: jitter,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // pacing, not security
		sleep:  sleepContext,
		now:    time.Now,
	}
}

// WaitDetail blocks until a detail lookup may be sent.
func (r *RateLimiter) WaitDetail(ctx context.Context) error {
	r.waitBackoff(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.detail.Wait(ctx)
}

// WaitAnalytics applies the inter-request jitter before every analytics request but the first.
func (r *RateLimiter) WaitAnalytics(ctx context.Context) error {
	r.waitBackoff(ctx)

	r.mu.Lock()
	first := !r.started
	r.started = true
	delay := r.jitter.pick(r.rng)
	r.mu.Unlock()

	if !first {
		r.sleep(ctx, delay)
	}
	return ctx.Err()
}

// RecordRateLimit sets a backoff period. Later requests wait until it passes.
func (r *RateLimiter) RecordRateLimit(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := r.now().Add(d); until.After(r.retryAt) {
		r.retryAt = until
	}
}

func (r *RateLimiter) waitBackoff(ctx context.Context) {
	r.mu.Lock()
	wait := r.retryAt.Sub(r.now())
	r.mu.Unlock()
	if wait > 0 {
		r.sleep(ctx, wait)
	}
}

// retryAfter parses the Retry-After header in seconds.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	if v := resp.Header.Get(HeaderRetryAfter); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
