package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Token Manager Metrics
var (
	// TokenFetches tracks password grant requests against the token endpoint
	TokenFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emrproxy_token_fetches_total",
			Help: "Total token endpoint fetches by trigger (expired, forced) and status",
		},
		[]string{"trigger", "status"},
	)

	// TokenFetchDuration tracks token endpoint latency
	TokenFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "emrproxy_token_fetch_duration_ms",
			Help:                            "Token endpoint fetch duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"trigger"},
	)

	// TokenCacheHits tracks requests served from the cached token
	TokenCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emrproxy_token_cache_hits_total",
			Help: "Total token requests answered from the cache without a fetch",
		},
	)

	// TokenFetchesJoined tracks callers that shared an in-flight fetch
	TokenFetchesJoined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emrproxy_token_fetches_joined_total",
			Help: "Total token requests that joined an already in-flight fetch",
		},
	)

	// TokenExpiryTimestamp tracks when the cached token expires
	TokenExpiryTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emrproxy_token_expiry_timestamp",
			Help: "Expiry of the cached access token (Unix timestamp, 0 when empty)",
		},
	)
)

// Upstream EMR API Metrics
var (
	// UpstreamRequests tracks proxied calls to the EMR REST API
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emrproxy_upstream_requests_total",
			Help: "Total upstream EMR API requests by method, resource (first path segment), and status code",
		},
		[]string{"method", "resource", "status_code"},
	)

	// UpstreamDuration tracks upstream EMR API latency
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "emrproxy_upstream_request_duration_ms",
			Help:                            "Upstream EMR API request duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "resource"},
	)

	// UpstreamErrors tracks upstream EMR API errors by type
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emrproxy_upstream_errors_total",
			Help: "Total upstream EMR API errors by resource and error type",
		},
		[]string{"resource", "error_type"},
	)

	// UpstreamAuthRetries tracks 401-triggered refresh-and-retry cycles
	UpstreamAuthRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emrproxy_upstream_auth_retries_total",
			Help: "Total upstream requests retried after a 401 forced a token refresh",
		},
	)
)

// HTTP/Web Handler Metrics
var (
	// HTTPRequests tracks HTTP requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emrproxy_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration tracks HTTP request duration
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "emrproxy_http_request_duration_ms",
			Help:                            "HTTP request duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "path"},
	)

	// HTTPActiveRequests tracks active HTTP requests
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emrproxy_http_active_requests",
			Help: "Number of active HTTP requests",
		},
	)
)
