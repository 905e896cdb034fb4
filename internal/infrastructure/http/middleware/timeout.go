package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeout bounds the request context to d. Generation waits on the
// IAP proxy, and its retries and lookups all observe this deadline. It does
// not lift the server's WriteTimeout, which must stay longer than d.
func RequestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
