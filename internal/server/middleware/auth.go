package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey int

const accountKey contextKey = iota

// Auth returns middleware that resolves API requests to an account using
// a Bearer token in the Authorization header or a static key in the
// X-API-Key header. The tokens map binds each token to the account it
// acts as. If the map is empty, authentication is disabled and the
// account is taken from the X-Account header instead.
func Auth(tokens map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health checks stay reachable for load balancers.
			if r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			if len(tokens) == 0 {
				account := strings.TrimSpace(r.Header.Get("X-Account"))
				next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			// Constant-time comparison to prevent timing attacks.
			for known, account := range tokens {
				if subtle.ConstantTimeCompare([]byte(token), []byte(known)) == 1 {
					next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
					return
				}
			}

			writeUnauthorized(w, "invalid authentication token")
		})
	}
}

// WithAccount stores the authenticated account on the context.
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

// Account returns the authenticated account for the request, or an empty
// string when the request carried no usable identity.
func Account(ctx context.Context) string {
	account, _ := ctx.Value(accountKey).(string)
	return account
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}

	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
