package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultTokenURL = "https://open.larksuite.com/open-apis/authen/v2/oauth/token"

	// accessTokenBuffer prevents a token from being treated as valid right
	// up to its expiry instant.
	accessTokenBuffer = 5 * time.Minute
	// refreshTokenBuffer applies the same idea to the refresh token.
	refreshTokenBuffer = time.Hour
)

// ErrTokenExpired is returned when neither the cached access token nor the
// refresh token can produce a usable credential.
var ErrTokenExpired = errors.New("lark: stored credentials expired, re-authorization required")

// storedToken is the JSON payload persisted to the token cache file.
type storedToken struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	SavedAt               int64  `json:"saved_at"`
}

func (t storedToken) accessValid(now time.Time) bool {
	if t.AccessToken == "" || t.ExpiresIn <= 0 {
		return false
	}
	expiry := time.Unix(t.SavedAt+t.ExpiresIn, 0).Add(-accessTokenBuffer)
	return now.Before(expiry)
}

func (t storedToken) refreshValid(now time.Time) bool {
	if t.RefreshToken == "" {
		return false
	}
	if t.RefreshTokenExpiresIn <= 0 {
		// Some tenants issue refresh tokens without an expiry.
		return true
	}
	expiry := time.Unix(t.SavedAt+t.RefreshTokenExpiresIn, 0).Add(-refreshTokenBuffer)
	return now.Before(expiry)
}

// TokenCache owns the OAuth access token lifecycle: it loads the cached
// token from disk, refreshes it through the OAuth endpoint when stale, and
// persists the refreshed credentials.
type TokenCache struct {
	path       string
	appID      string
	appSecret  string
	tokenURL   string
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	cached *storedToken
}

// TokenCacheOption customizes a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithTokenURL overrides the OAuth token endpoint (useful for tests).
func WithTokenURL(url string) TokenCacheOption {
	return func(c *TokenCache) {
		if strings.TrimSpace(url) != "" {
			c.tokenURL = url
		}
	}
}

// WithTokenHTTPClient overrides the HTTP client used for refresh requests.
func WithTokenHTTPClient(client *http.Client) TokenCacheOption {
	return func(c *TokenCache) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCache builds a token cache persisted at path.
func NewTokenCache(path, appID, appSecret string, opts ...TokenCacheOption) *TokenCache {
	cache := &TokenCache{
		path:       path,
		appID:      strings.TrimSpace(appID),
		appSecret:  strings.TrimSpace(appSecret),
		tokenURL:   defaultTokenURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// AccessToken returns a valid access token, refreshing and persisting it
// when the cached one is within the expiry buffer.
func (c *TokenCache) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := c.loadLocked()
	if err != nil {
		return "", err
	}

	now := c.now()
	if token.accessValid(now) {
		return token.AccessToken, nil
	}
	if !token.refreshValid(now) {
		return "", ErrTokenExpired
	}

	refreshed, err := c.refresh(ctx, token.RefreshToken)
	if err != nil {
		return "", err
	}
	if err := c.saveLocked(refreshed); err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Store persists new credentials, replacing the cached ones.
func (c *TokenCache) Store(accessToken, refreshToken string, expiresIn, refreshExpiresIn int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(&storedToken{
		AccessToken:           accessToken,
		ExpiresIn:             expiresIn,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresIn: refreshExpiresIn,
		SavedAt:               c.now().Unix(),
	})
}

func (c *TokenCache) loadLocked() (*storedToken, error) {
	if c.cached != nil {
		return c.cached, nil
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("lark token: read cache: %w", err)
	}
	var token storedToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("lark token: parse cache: %w", err)
	}
	c.cached = &token
	return &token, nil
}

func (c *TokenCache) saveLocked(token *storedToken) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("lark token: encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("lark token: ensure cache dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("lark token: write cache: %w", err)
	}
	c.cached = token
	return nil
}

type oauthTokenResponse struct {
	Code                  int    `json:"code"`
	AccessToken           string `json:"access_token"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	Error                 string `json:"error"`
	ErrorDescription      string `json:"error_description"`
}

func (c *TokenCache) refresh(ctx context.Context, refreshToken string) (*storedToken, error) {
	if c.appID == "" || c.appSecret == "" {
		return nil, errors.New("lark token: app credentials required for refresh")
	}
	payload, err := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     c.appID,
		"client_secret": c.appSecret,
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("lark token: encode refresh: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("lark token: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lark token: refresh failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lark token: read response: %w", err)
	}

	var parsed oauthTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("lark token: parse response: %w", err)
	}
	if parsed.AccessToken == "" {
		reason := parsed.ErrorDescription
		if reason == "" {
			reason = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("lark token: refresh rejected: %s", reason)
	}

	expiresIn := parsed.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 7200
	}
	refreshed := &storedToken{
		AccessToken:           parsed.AccessToken,
		ExpiresIn:             expiresIn,
		RefreshToken:          parsed.RefreshToken,
		RefreshTokenExpiresIn: parsed.RefreshTokenExpiresIn,
		SavedAt:               c.now().Unix(),
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = refreshToken
	}
	return refreshed, nil
}
