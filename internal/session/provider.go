package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Provider yields the current session's bearer token.
//
// An empty token with a nil error means "no active session": callers proceed
// unauthenticated. A non-nil error means the provider itself failed and the
// caller should treat the surrounding operation as failed.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// ProviderFunc is a function adapter for Provider.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static returns a Provider that always yields the given token.
// Used for pre-issued tokens and for running without a session (empty token).
func Static(token string) Provider {
	return ProviderFunc(func(ctx context.Context) (string, error) {
		return token, nil
	})
}

// Config holds HTTP provider settings.
type Config struct {
	URL      string        // Auth provider base URL
	APIKey   string        // Project key, sent as the apikey header
	Email    string        // Password-grant credentials
	Password string        //
	Timeout  time.Duration // Per-request timeout
}

// HTTPProvider fetches tokens from the auth provider's password-grant endpoint
// and caches them until shortly before expiry.
type HTTPProvider struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// expirySlack refreshes tokens this long before they actually expire.
const expirySlack = 30 * time.Second

// NewHTTPProvider creates a provider against the configured auth endpoint.
func NewHTTPProvider(cfg Config, logger *slog.Logger) *HTTPProvider {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Token returns the cached token, refreshing it from the provider when the
// cache is empty or about to expire.
func (p *HTTPProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.expiresAt.Add(-expirySlack)) {
		return p.token, nil
	}

	token, expiresIn, err := p.fetch(ctx)
	if err != nil {
		return "", err
	}

	p.token = token
	if expiresIn > 0 {
		p.expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	} else {
		// Provider gave no lifetime; re-fetch on every handshake.
		p.expiresAt = time.Now()
	}

	return token, nil
}

// tokenResponse is the provider's grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// fetch performs the password-grant request. Must be called with p.mu held.
func (p *HTTPProvider) fetch(ctx context.Context) (token string, expiresIn int64, err error) {
	body, err := json.Marshal(map[string]string{
		"email":    p.cfg.Email,
		"password": p.cfg.Password,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshal grant request: %w", err)
	}

	url := p.cfg.URL + "/auth/v1/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("create grant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("apikey", p.cfg.APIKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("session provider request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read provider response: %w", err)
	}

	// 401/403 means no usable session, not a provider failure: callers
	// continue unauthenticated and let the server decide.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		p.logger.Warn("session provider rejected credentials, continuing unauthenticated",
			"status", resp.StatusCode,
		)
		return "", 0, nil
	}
	if resp.StatusCode >= 400 {
		return "", 0, fmt.Errorf("session provider error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", 0, fmt.Errorf("decode provider response: %w", err)
	}

	return tr.AccessToken, tr.ExpiresIn, nil
}

// Invalidate drops the cached token so the next Token call re-fetches.
func (p *HTTPProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	p.expiresAt = time.Time{}
}
