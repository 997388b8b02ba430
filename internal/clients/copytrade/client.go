// Package copytrade provides a typed client for the copy-trade.io platform API
// and its identity provider.
package copytrade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIURL      = "https://papi.copy-trade.io"
	DefaultIdentityURL = "https://identity.copy-trade.io"
	DefaultClientID    = "api-client"
	DefaultTenant      = "pepperstone"
	DefaultWhiteLabel  = "pepperstone"
	DefaultTimeout     = 5 * time.Second

	maxLoggedBody = 500
)

// Client talks to the platform REST API (apiURL) and the identity provider (identityURL).
// It is safe for concurrent use.
type Client struct {
	apiURL      string
	identityURL string
	clientID    string
	tenant      string
	whiteLabel  string
	httpClient  *http.Client
	limiter     *rate.Limiter
	log         zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithAPIURL overrides the platform API base URL
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = strings.TrimRight(u, "/") }
}

// WithIdentityURL overrides the identity provider base URL
func WithIdentityURL(u string) Option {
	return func(c *Client) { c.identityURL = strings.TrimRight(u, "/") }
}

// WithClientID sets the OAuth client id
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

// WithTenant sets the tenant sent as acr_values
func WithTenant(tenant string) Option {
	return func(c *Client) { c.tenant = tenant }
}

// WithWhiteLabel sets the white label sent as the wl query parameter
func WithWhiteLabel(wl string) Option {
	return func(c *Client) { c.whiteLabel = wl }
}

// WithTimeout sets the default per-request timeout.
// Callers can still impose shorter deadlines through the context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the client logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "copytrade").Logger() }
}

// NewClient creates a new platform client
func NewClient(opts ...Option) *Client {
	c := &Client{
		apiURL:      DefaultAPIURL,
		identityURL: DefaultIdentityURL,
		clientID:    DefaultClientID,
		tenant:      DefaultTenant,
		whiteLabel:  DefaultWhiteLabel,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiEndpoint joins a path under the platform API
func (c *Client) apiEndpoint(path string, query url.Values) string {
	u := c.apiURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// wlQuery returns the white label query used by discover and stats endpoints
func (c *Client) wlQuery() url.Values {
	return url.Values{"wl": {c.whiteLabel}}
}

// getJSON performs an authenticated GET and decodes a 200 response into out
func (c *Client) getJSON(ctx context.Context, token, endpoint string, out interface{}) error {
	_, err := c.doJSON(ctx, http.MethodGet, endpoint, token, nil, out, http.StatusOK)
	return err
}

// doJSON sends an authenticated JSON request. The response is decoded into out
// when out is non-nil and the body is non-empty. Any status outside accept is an *APIError.
func (c *Client) doJSON(ctx context.Context, method, endpoint, token string, payload, out interface{}, accept ...int) (int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.send(req, out, accept)
}

// send executes req with rate limiting, status checking and JSON decoding
func (c *Client) send(req *http.Request, out interface{}, accept []int) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return 0, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response from %s: %w", req.URL.Path, err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("endpoint", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration_ms", time.Since(start)).
		Msg("Upstream request")

	if !statusAccepted(resp.StatusCode, accept) {
		message := truncate(strings.TrimSpace(string(respBody)), maxLoggedBody)
		c.log.Warn().
			Str("method", req.Method).
			Str("endpoint", req.URL.Path).
			Int("status", resp.StatusCode).
			Str("body", message).
			Msg("Upstream request failed")
		return resp.StatusCode, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   req.URL.Path,
			Message:    message,
		}
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, req.URL.Path, err)
		}
	}

	return resp.StatusCode, nil
}

func statusAccepted(status int, accept []int) bool {
	if len(accept) == 0 {
		return status == http.StatusOK
	}
	for _, s := range accept {
		if s == status {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
