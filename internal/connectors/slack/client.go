package slack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
)

// Ensure Client implements the interfaces.
var (
	_ driven.SourceClient        = (*Client)(nil)
	_ driven.ProfileFieldLabeler = (*Client)(nil)
)

// ErrMissingToken indicates a credential required for a call is not configured.
var ErrMissingToken = errors.New("slack: token not configured")

// Client is the Slack source client. It is safe for concurrent use.
type Client struct {
	cfg     Config
	bot     *http.Client
	user    *http.Client
	limiter *RateLimiter

	mu        sync.Mutex
	directory map[domain.EntityKind][]domain.Entity
	labels    map[string]string
}

// NewClient creates a Slack client from cfg.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:       cfg,
		bot:       newHTTPClient(cfg.BotToken, cfg),
		user:      newHTTPClient(cfg.UserToken, cfg),
		limiter:   NewRateLimiter(cfg.DetailRate, cfg.AnalyticsJitter),
		directory: make(map[domain.EntityKind][]domain.Entity),
	}
}

// newHTTPClient returns a client that sends token as a bearer credential, or nil without one.
func newHTTPClient(token string, cfg Config) *http.Client {
	if token == "" {
		return nil
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	hc := oauth2.NewClient(context.Background(), ts)
	hc.Timeout = cfg.Timeout
	return hc
}

func (c *Client) httpClient(role domain.CredentialRole) (*http.Client, error) {
	hc := c.bot
	if role == domain.RoleUser {
		hc = c.user
	}
	if hc == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingToken, role)
	}
	return hc, nil
}

// do sends a request and returns the open response. The caller closes the body.
func (c *Client) do(ctx context.Context, role domain.CredentialRole, httpMethod, method string, params url.Values) (*http.Response, error) {
	hc, err := c.httpClient(role)
	if err != nil {
		return nil, err
	}

	endpoint := c.cfg.BaseURL + method
	var req *http.Request
	if httpMethod == http.MethodGet {
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack: %s: %w", method, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, &RateLimitError{Method: method, RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &APIError{Method: method, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// call performs a JSON Web API call and returns the body once "ok" is confirmed.
func (c *Client) call(ctx context.Context, role domain.CredentialRole, method string, params url.Values) ([]byte, error) {
	resp, err := c.do(ctx, role, http.MethodPost, method, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("slack: read %s: %w", method, err)
	}
	if err := checkEnvelope(method, resp, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkEnvelope maps an {"ok":false,"error":...} body onto typed errors.
func checkEnvelope(method string, resp *http.Response, body []byte) error {
	if !gjson.ValidBytes(body) {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Code: "invalid_response"}
	}
	if gjson.GetBytes(body, "ok").Bool() {
		return nil
	}
	code := gjson.GetBytes(body, "error").String()
	if code == CodeRateLimited {
		return &RateLimitError{Method: method, RetryAfter: retryAfter(resp)}
	}
	return &APIError{Method: method, StatusCode: resp.StatusCode, Code: code}
}

// TestAuth validates the credential for role with auth.test.
func (c *Client) TestAuth(ctx context.Context, role domain.CredentialRole) (*domain.Identity, error) {
	body, err := c.call(ctx, role, "auth.test", url.Values{})
	if err != nil {
		return nil, err
	}
	r := gjson.ParseBytes(body)
	return &domain.Identity{
		OK:     true,
		UserID: r.Get("user_id").String(),
		User:   r.Get("user").String(),
		TeamID: r.Get("team_id").String(),
		Team:   r.Get("team").String(),
		URL:    r.Get("url").String(),
	}, nil
}
