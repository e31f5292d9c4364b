// Package auth obtains and caches the OAuth2 bearer token the gateway
// presents to the spreadsheet API, minted from service-account credentials
// via a signed JWT-bearer grant.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/frotaops/sheetgate/internal/credentials"
	"github.com/frotaops/sheetgate/internal/model"
)

const (
	// DefaultTokenURL is Google's OAuth2 token endpoint.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	// Scope grants spreadsheet read/write.
	Scope = "https://www.googleapis.com/auth/spreadsheets"

	grantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionLifetime is the exp-iat window of the signed assertion.
	assertionLifetime = time.Hour

	// refreshSkew is the minimum remaining validity a cached token must
	// have to be handed out. Anything closer to expiry is refreshed
	// proactively so in-flight spreadsheet calls never straddle expiry.
	refreshSkew = 60 * time.Second

	// minLifetime clamps degenerate upstream expires_in values.
	minLifetime = 60 * time.Second
)

// token is a bearer string with its absolute expiry.
type token struct {
	value     string
	expiresAt time.Time
}

func (t token) usable(now time.Time) bool {
	return t.value != "" && !t.expiresAt.Before(now.Add(refreshSkew))
}

// Manager mints, caches, and refreshes the bearer token. Concurrent
// callers that miss the cache share one outstanding token exchange.
type Manager struct {
	creds    *credentials.Credentials
	tokenURL string
	client   *http.Client
	now      func() time.Time

	group singleflight.Group

	mu  sync.Mutex
	tok token
}

// Option customizes a Manager.
type Option func(*Manager)

// WithTokenURL overrides the token endpoint. Used by tests.
func WithTokenURL(u string) Option {
	return func(m *Manager) { m.tokenURL = u }
}

// WithHTTPClient overrides the HTTP client used for the exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// NewManager creates a token manager for the given service account.
func NewManager(creds *credentials.Credentials, opts ...Option) *Manager {
	m := &Manager{
		creds:    creds,
		tokenURL: DefaultTokenURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AccessToken returns a bearer token with at least refreshSkew of validity
// remaining. A fresh cached token is returned without I/O; otherwise one
// refresh runs and every waiting caller receives its result.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	tok := m.tok
	m.mu.Unlock()
	if tok.usable(m.now()) {
		return tok.value, nil
	}

	res, err, _ := m.group.Do("token", func() (interface{}, error) {
		// A refresh that completed while we waited for the flight slot
		// satisfies this caller too.
		m.mu.Lock()
		tok := m.tok
		m.mu.Unlock()
		if tok.usable(m.now()) {
			return tok.value, nil
		}

		fresh, err := m.exchange(ctx)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.tok = fresh
		m.mu.Unlock()
		return fresh.value, nil
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// exchange signs a JWT assertion and trades it for a bearer token.
func (m *Manager) exchange(ctx context.Context) (token, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"iss":   m.creds.Issuer,
		"scope": Scope,
		"aud":   m.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.creds.PrivateKey)
	if err != nil {
		return token{}, &model.ConfigurationError{Reason: "signing token assertion failed", Err: err}
	}

	form := url.Values{
		"grant_type": {grantType},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return token{}, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return token{}, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return token{}, &model.TransportError{Op: "token.exchange", Status: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return token{}, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return token{}, fmt.Errorf("token response carried no access_token")
	}

	lifetime := time.Duration(payload.ExpiresIn) * time.Second
	if lifetime < minLifetime {
		lifetime = minLifetime
	}
	return token{value: payload.AccessToken, expiresAt: m.now().Add(lifetime)}, nil
}
