// Package identity resolves the caller's user ID. Authentication itself
// happens upstream (gateway or identity provider); this service only
// trusts the header the proxy injects after verifying the session.
package identity

import (
	"context"
	"net/http"
	"strings"
)

// HeaderUserID is set by the authenticating reverse proxy.
const HeaderUserID = "X-User-ID"

type contextKey string

const userIDKey contextKey = "user_id"

// Middleware rejects requests without an established identity and puts
// the opaque user ID in the request context. The 401 is written directly
// so this package stays import-free of the HTTP helpers that sit above
// it in the router.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the user ID set by Middleware, or "" if absent.
func FromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
