package middleware

import (
	"context"
	"net/http"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/pkg/idgen"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID assigns every request a correlation ID, honoring one supplied by
// an upstream load balancer. Handlers read it from the context; clients see
// it in the X-Request-ID response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = idgen.RequestID()
		}

		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request's correlation ID, or "" when the
// middleware did not run
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
