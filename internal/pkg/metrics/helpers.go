package metrics

import (
	"strconv"
	"strings"
	"time"
)

// RecordTokenFetch records one token endpoint fetch consistently
// trigger: what started the fetch ("expired" or "forced")
// duration: time taken for the grant round-trip
// err: error from the fetch (nil if successful)
func RecordTokenFetch(trigger string, duration time.Duration, err error) {
	TokenFetchDuration.WithLabelValues(trigger).Observe(float64(duration.Milliseconds()))

	status := "success"
	if err != nil {
		status = "error"
	}
	TokenFetches.WithLabelValues(trigger, status).Inc()
}

// SetTokenExpiry publishes the cached token's expiry for alerting
func SetTokenExpiry(expiry time.Time) {
	if expiry.IsZero() {
		TokenExpiryTimestamp.Set(0)
		return
	}
	TokenExpiryTimestamp.Set(float64(expiry.Unix()))
}

// RecordUpstreamRequest records one proxied EMR API call consistently
// statusCode is 0 when the request never produced a response
func RecordUpstreamRequest(method, path string, statusCode int, duration time.Duration, err error) {
	resource := NormalizeResource(path)

	UpstreamRequests.WithLabelValues(method, resource, strconv.Itoa(statusCode)).Inc()
	UpstreamDuration.WithLabelValues(method, resource).Observe(float64(duration.Milliseconds()))

	if err != nil || statusCode >= 400 {
		UpstreamErrors.WithLabelValues(resource, classifyUpstreamError(statusCode, err)).Inc()
	}
}

// NormalizeResource reduces an API path to its first segment so metrics stay
// low-cardinality: "/patient/1/encounter" becomes "patient"
func NormalizeResource(path string) string {
	trimmed := strings.TrimLeft(path, "/")
	if i := strings.IndexAny(trimmed, "/?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "root"
	}
	return trimmed
}

// classifyUpstreamError categorizes upstream EMR errors for metrics
func classifyUpstreamError(statusCode int, err error) string {
	if err != nil {
		errStr := strings.ToLower(err.Error())
		switch {
		case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
			return "timeout"
		case strings.Contains(errStr, "connection") || strings.Contains(errStr, "connect"):
			return "connection"
		case strings.Contains(errStr, "tls"):
			return "tls"
		default:
			return "network"
		}
	}

	// HTTP status code errors
	switch {
	case statusCode == 400:
		return "bad_request"
	case statusCode == 401:
		return "unauthorized"
	case statusCode == 403:
		return "forbidden"
	case statusCode == 404:
		return "not_found"
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	default:
		return "unknown"
	}
}
