package copytrade

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// ProfileClaim is the userinfo claim carrying the platform profile id
	ProfileClaim = "https://copy-trade.io/profile"

	// PKCEChallengeMethodS256 is the only challenge method the identity provider accepts
	PKCEChallengeMethodS256 = "S256"

	authScope = "openid profile email api copytrade offline_access"
)

// PKCEPair is a code verifier and its S256 challenge
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// NewPKCEPair generates a random verifier and its challenge
func NewPKCEPair() (PKCEPair, error) {
	verifierBytes := make([]byte, 32)
	if _, err := rand.Read(verifierBytes); err != nil {
		return PKCEPair{}, err
	}

	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)
	return PKCEPair{
		Verifier:  verifier,
		Challenge: ChallengeFor(verifier),
	}, nil
}

// ChallengeFor derives the S256 challenge of a verifier
func ChallengeFor(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// NewState returns a random OAuth state value
func NewState() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// AuthURL builds the authorization endpoint URL for the PKCE flow.
// An empty state is omitted.
func (c *Client) AuthURL(redirectURI, challenge, state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", authScope)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", PKCEChallengeMethodS256)
	q.Set("acr_values", "tenant:"+c.tenant)
	if state != "" {
		q.Set("state", state)
	}
	// url.Values encodes spaces as '+', the identity provider expects %20
	return c.identityURL + "/connect/authorize?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}

// LogoutURL builds the end-session URL that returns the browser to baseURL?logged_out=1
func (c *Client) LogoutURL(baseURL string) string {
	q := url.Values{}
	q.Set("post_logout_redirect_uri", baseURL+"?logged_out=1")
	return c.identityURL + "/connect/endsession?" + q.Encode()
}

// ExchangeCode trades an authorization code for tokens.
// OAuth error bodies are returned as *TokenError.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", verifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.identityURL+"/connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: "/connect/token", Message: truncate(string(body), maxLoggedBody)}
		}
		return nil, fmt.Errorf("%w: /connect/token: %v", ErrMalformedResponse, err)
	}

	if tr.AccessToken == "" {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("error", tr.Error).
			Msg("Token exchange rejected")
		return nil, &TokenError{Code: tr.Error, Description: tr.ErrorDescription}
	}

	return &tr, nil
}

// ProfileID resolves the platform profile id of the token owner
func (c *Client) ProfileID(ctx context.Context, token string) (string, error) {
	var claims map[string]json.RawMessage
	if err := c.getJSON(ctx, token, c.identityURL+"/connect/userinfo", &claims); err != nil {
		return "", err
	}

	raw, ok := claims[ProfileClaim]
	if !ok {
		return "", ErrNoProfile
	}

	var id ID
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", fmt.Errorf("%w: profile claim: %v", ErrMalformedResponse, err)
	}
	if id == "" {
		return "", ErrNoProfile
	}
	return id.String(), nil
}
