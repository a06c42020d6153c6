package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireKey returns middleware that validates requests against any of the
// given API keys, using either a Bearer token in the Authorization header or
// a static key in the X-API-Key header. Empty keys are skipped; if no
// non-empty key is configured, the middleware passes all requests through
// (disabled).
//
// Route groups with different privilege levels get separate key sets: admin
// routes accept only the admin key, oracle routes accept the oracle or the
// admin key.
func RequireKey(keys ...string) func(http.Handler) http.Handler {
	valid := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			valid = append(valid, k)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(valid) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			// Constant-time comparison to prevent timing attacks.
			for _, k := range valid {
				if subtle.ConstantTimeCompare([]byte(token), []byte(k)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeUnauthorized(w, "invalid authentication token")
		})
	}
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	// Check Authorization: Bearer <token>
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// Check X-API-Key header.
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
