package openemr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/pkg/metrics"
)

// TokenSource supplies access tokens to the forwarder. Implementations other
// than TokenManager exist only in tests.
type TokenSource interface {
	GetToken(ctx context.Context, forceRefresh bool) (string, error)
}

// Forwarder issues authenticated calls against the OpenEMR REST API. It is
// stateless per call: the only side effect it can cause is a token refresh
// inside its TokenSource.
//
// A 401 from the upstream is treated as a stale token: the forwarder forces
// one refresh and retries exactly once. Every other failure class (timeouts,
// 5xx, transport errors) propagates immediately without a retry.
type Forwarder struct {
	apiBase    string
	tokens     TokenSource
	httpClient *http.Client
	log        *slog.Logger
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithForwarderHTTPClient sets a custom HTTP client for resource calls.
func WithForwarderHTTPClient(httpClient *http.Client) ForwarderOption {
	return func(f *Forwarder) {
		f.httpClient = httpClient
	}
}

// WithForwarderLogger sets a custom logger.
func WithForwarderLogger(logger *slog.Logger) ForwarderOption {
	return func(f *Forwarder) {
		f.log = logger
	}
}

// NewForwarder creates a forwarder rooted at apiBase (the site's REST API
// root, e.g. https://emr.example.com/apis/default/api).
func NewForwarder(apiBase string, tokens TokenSource, opts ...ForwarderOption) (*Forwarder, error) {
	if apiBase == "" {
		return nil, &ConfigError{Field: "api base URL"}
	}
	if tokens == nil {
		return nil, &ConfigError{Field: "token source"}
	}

	f := &Forwarder{
		apiBase:    strings.TrimRight(apiBase, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With(slog.String("component", "forwarder"))

	return f, nil
}

// Forward issues one authenticated upstream call and returns the response
// body. On a 401 it forces a single token refresh and retries once; whatever
// that retry produces, success or a second failure, is what the caller
// observes. A failed refresh surfaces the refresh error itself.
func (f *Forwarder) Forward(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	token, err := f.tokens.GetToken(ctx, false)
	if err != nil {
		return nil, err
	}

	respBody, err := f.do(ctx, method, path, token, body)
	if err == nil {
		return respBody, nil
	}

	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusUnauthorized {
		return nil, err
	}

	// The cached token was rejected. One forced refresh, one retry. A 401
	// can also mean permanently invalid credentials; in that case the retry
	// fails the same way and this log line repeats on every request.
	f.log.Info("upstream rejected token, refreshing",
		slog.String("method", method),
		slog.String("path", path))
	metrics.UpstreamAuthRetries.Inc()

	token, err = f.tokens.GetToken(ctx, true)
	if err != nil {
		return nil, err
	}

	return f.do(ctx, method, path, token, body)
}

// Get issues an authenticated GET.
func (f *Forwarder) Get(ctx context.Context, path string) ([]byte, error) {
	return f.Forward(ctx, http.MethodGet, path, nil)
}

// Post issues an authenticated POST with a JSON body.
func (f *Forwarder) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return f.Forward(ctx, http.MethodPost, path, body)
}

// do performs a single attempt. Non-2xx statuses become UpstreamError with
// the status and body preserved; transport failures become UpstreamError with
// Status 0. The 401 discrimination happens in Forward, on the typed error.
func (f *Forwarder) do(ctx context.Context, method, path, token string, body []byte) ([]byte, error) {
	url := f.apiBase + "/" + strings.TrimLeft(path, "/")

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &UpstreamError{Detail: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(method, path, 0, time.Since(start), err)
		f.log.Error("upstream request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, &UpstreamError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Detail: "reading response: " + err.Error()}
	}
	metrics.RecordUpstreamRequest(method, path, resp.StatusCode, time.Since(start), nil)

	f.log.Debug("upstream request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}
