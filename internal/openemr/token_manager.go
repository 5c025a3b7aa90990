package openemr

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/pkg/metrics"
)

const (
	// DefaultHTTPTimeout bounds both token fetches and forwarded resource
	// calls when the caller does not supply its own http.Client.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultRefreshBuffer is the safety margin subtracted from a token's
	// lifetime: a token within this margin of expiry is treated as already
	// expired so it cannot lapse mid-request.
	DefaultRefreshBuffer = 30 * time.Second

	// DefaultTokenTTL is assumed when the token response omits expires_in
	// or reports a non-positive value.
	DefaultTokenTTL = 300 * time.Second

	// fetchKey is the singleflight key. There is only one credential set
	// per process, so all fetches share one flight.
	fetchKey = "token"
)

// TokenManager owns the process-wide cached access token. It fetches via the
// password grant on demand, deduplicates concurrent fetches into a single
// in-flight request, and replaces the cache wholesale on success. Failures
// are surfaced to every waiter; nothing stale is ever substituted.
type TokenManager struct {
	tokenURL   string
	creds      Credentials
	httpClient *http.Client
	buffer     time.Duration
	log        *slog.Logger

	mu    sync.RWMutex
	token *oauth2.Token

	group singleflight.Group

	// now is swapped in tests to step through expiry windows.
	now func() time.Time
}

// Option configures a TokenManager.
type Option func(*TokenManager)

// WithHTTPClient sets a custom HTTP client for token fetches.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(m *TokenManager) {
		m.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *TokenManager) {
		m.log = logger
	}
}

// WithRefreshBuffer overrides the expiry safety margin.
func WithRefreshBuffer(buffer time.Duration) Option {
	return func(m *TokenManager) {
		m.buffer = buffer
	}
}

// NewTokenManager creates a token manager for the given token endpoint.
// Missing required credentials are a construction-time ConfigError so a
// misconfigured process fails at startup, not on its first request.
func NewTokenManager(tokenURL string, creds Credentials, opts ...Option) (*TokenManager, error) {
	if tokenURL == "" {
		return nil, &ConfigError{Field: "token endpoint URL"}
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	m := &TokenManager{
		tokenURL:   tokenURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		buffer:     DefaultRefreshBuffer,
		log:        slog.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(slog.String("component", "token_manager"))

	return m, nil
}

// GetToken returns a valid access token, fetching one when the cache is empty
// or inside the refresh buffer. With forceRefresh the cache check is skipped:
// the caller either joins a fetch already in flight or starts a new one even
// though the cached token still looks valid (a 401 proved otherwise).
//
// All callers that arrive while a fetch is in flight receive that fetch's
// result: the same token or the same error. The in-flight marker clears when
// the fetch settles, success or failure, so a later call can try again.
func (m *TokenManager) GetToken(ctx context.Context, forceRefresh bool) (string, error) {
	if !forceRefresh {
		m.mu.RLock()
		if m.validLocked() {
			token := m.token.AccessToken
			m.mu.RUnlock()
			metrics.TokenCacheHits.Inc()
			return token, nil
		}
		m.mu.RUnlock()
	}

	trigger := "expired"
	if forceRefresh {
		trigger = "forced"
	}

	result, err, shared := m.group.Do(fetchKey, func() (interface{}, error) {
		// Double-check after winning the flight: a fetch that completed
		// between our cache miss and here already did the work. A forced
		// refresh skips this check and always hits the network.
		if !forceRefresh {
			m.mu.RLock()
			if m.validLocked() {
				token := m.token.AccessToken
				m.mu.RUnlock()
				return token, nil
			}
			m.mu.RUnlock()
		}

		start := time.Now()
		token, err := m.fetchToken(ctx)
		metrics.RecordTokenFetch(trigger, time.Since(start), err)
		if err != nil {
			return "", err
		}

		m.mu.Lock()
		m.token = token
		m.mu.Unlock()
		metrics.SetTokenExpiry(token.Expiry)

		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	if shared {
		metrics.TokenFetchesJoined.Inc()
		m.log.Debug("joined in-flight token fetch")
	}
	return result.(string), nil
}

// Cached returns a copy of the current cache entry, or nil when no token has
// been fetched yet. It never triggers a fetch; status surfaces use it to
// report expiry without spending an upstream call.
func (m *TokenManager) Cached() *oauth2.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return nil
	}
	tok := *m.token
	return &tok
}

// validLocked reports whether the cached token is still outside the refresh
// buffer. Callers must hold m.mu.
func (m *TokenManager) validLocked() bool {
	return m.token != nil &&
		m.token.AccessToken != "" &&
		m.token.Expiry.Sub(m.now()) > m.buffer
}

// tokenResponse is the authorization server's JSON reply. Only access_token
// is required; everything else is optional.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	IDToken     string `json:"id_token,omitempty"`
	Scope       string `json:"scope,omitempty"`
}

// fetchToken performs one password-grant request. It holds no locks: the
// singleflight group already guarantees a single caller, and the lock must
// not be held across network I/O.
func (m *TokenManager) fetchToken(ctx context.Context) (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", m.creds.ClientID)
	form.Set("client_secret", m.creds.ClientSecret)
	form.Set("username", m.creds.Username)
	form.Set("password", m.creds.Password)
	form.Set("user_role", m.creds.Role)
	if m.creds.Scope != "" {
		form.Set("scope", m.creds.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthFetchError{Reason: "building token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	m.log.Debug("fetching access token",
		slog.String("endpoint", m.tokenURL),
		slog.String("user_role", m.creds.Role))

	start := m.now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.log.Error("token endpoint unreachable", slog.String("error", err.Error()))
		return nil, &AuthFetchError{Reason: "token endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthFetchError{Reason: "reading token response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.log.Warn("token endpoint rejected request",
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(body), 200)))
		return nil, &AuthFetchError{
			Reason: "token endpoint returned " + resp.Status,
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &AuthFetchError{Reason: "parsing token response", Err: err}
	}

	accessToken := strings.TrimSpace(tr.AccessToken)
	if accessToken == "" {
		return nil, &AuthFetchError{Reason: "token response missing access_token"}
	}

	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   tokenType,
		Expiry:      m.now().Add(ttl),
	}

	m.log.Info("fetched access token",
		slog.Duration("ttl", ttl),
		slog.Duration("elapsed", m.now().Sub(start)))

	return token, nil
}

// truncate caps a string for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
