package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// accessEntry is one access log line. A struct keeps the field order stable
// across lines, which makes the stdout stream easy to scan and diff.
type accessEntry struct {
	Timestamp  string `json:"timestamp"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Query      string `json:"query,omitempty"`
	Status     int    `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Bytes      int64  `json:"bytes"`
	ClientIP   string `json:"client_ip"`
	UserAgent  string `json:"user_agent,omitempty"`
	Proto      string `json:"proto"`
	RequestID  string `json:"request_id,omitempty"`
	Error      bool   `json:"error,omitempty"`
}

// LogRequest logs HTTP requests in structured JSON format for Kubernetes.
// Access lines go to stdout so the cluster log collector keeps them apart
// from the service's stderr diagnostics.
func LogRequest(next http.Handler) http.Handler {
	// The encoder reuses an internal buffer, so concurrent requests must
	// not share it without a lock
	var mu sync.Mutex
	enc := json.NewEncoder(os.Stdout)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip logging health checks and static files to reduce noise
		if r.URL.Path == "/health" || isStaticFile(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     200, // default if WriteHeader not called
		}

		next.ServeHTTP(wrapped, r)

		entry := accessEntry{
			Timestamp:  start.UTC().Format(time.RFC3339Nano),
			Method:     r.Method,
			Path:       r.URL.Path,
			Query:      r.URL.RawQuery,
			Status:     wrapped.statusCode,
			DurationMS: time.Since(start).Milliseconds(),
			Bytes:      wrapped.written,
			ClientIP:   clientIP(r),
			UserAgent:  r.UserAgent(),
			Proto:      r.Proto,
			RequestID:  GetRequestID(r.Context()),
			Error:      wrapped.statusCode >= 400,
		}

		mu.Lock()
		enc.Encode(entry)
		mu.Unlock()
	})
}

// clientIP returns the originating client address. Behind the ingress the
// first X-Forwarded-For hop is the caller; later hops are proxies the
// request passed through on the way in.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isStaticFile checks if the path is a static file request
func isStaticFile(path string) bool {
	return strings.HasPrefix(path, "/static/")
}
