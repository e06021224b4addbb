package middleware

import (
	"crypto/subtle"
	"net/http"
)

// RequireInternalAuth middleware ensures the request has the correct system secret.
// It guards the scheduler hooks under /internal.
func RequireInternalAuth(systemSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			if systemSecret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(systemSecret)) != 1 {
				http.Error(w, "Invalid authorization token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
