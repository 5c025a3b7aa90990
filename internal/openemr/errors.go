package openemr

import (
	"fmt"
	"net/http"
)

// ConfigError reports a required credential or setting that was absent when a
// component was constructed. It is fatal: the process must refuse to start
// rather than discover the gap on the first upstream call.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("openemr: missing required configuration: %s", e.Field)
}

// AuthFetchError reports a failed token fetch: the authorization server was
// unreachable, timed out, returned a non-success status, or returned a payload
// without a usable access token. The token manager never retries these itself;
// callers decide whether to try again later.
type AuthFetchError struct {
	Reason string
	Err    error // underlying cause, may be nil for protocol-level failures
}

func (e *AuthFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("openemr: token fetch failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("openemr: token fetch failed: %s", e.Reason)
}

func (e *AuthFetchError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a failed resource call after the forwarder's single
// permitted retry. Status is the upstream HTTP status code, or 0 when the
// request never completed (transport error, timeout). Detail preserves the
// upstream response body or error message for diagnostics.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("openemr: upstream request failed: %s", e.Detail)
	}
	return fmt.Sprintf("openemr: upstream returned %d: %s", e.Status, e.Detail)
}

// HTTPStatus returns the status code the HTTP boundary should surface to its
// own caller: the upstream status when one was received, 500 otherwise.
func (e *UpstreamError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}
