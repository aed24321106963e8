// Package api implements the blog HTTP API using chi.
package api

import (
	"net/http"
)

// Authenticator reports whether a request carries a valid admin session.
type Authenticator interface {
	Authenticated(r *http.Request) bool
}

// RequireSession returns middleware that rejects requests without a valid
// session cookie or bearer token.
func RequireSession(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Authenticated(r) {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
