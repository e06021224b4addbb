// Package middleware contains HTTP middleware for the controller.
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/owid/owid-grapher-sub039/internal/auth"
	"github.com/owid/owid-grapher-sub039/pkg/api"
)

var (
	errMissingAuthorization = errors.New("Missing authorization header")
	errInvalidAuthorization = errors.New("Invalid authorization header")
)

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errMissingAuthorization
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errInvalidAuthorization
	}
	return parts[1], nil
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// RequireAdminToken rejects requests whose bearer token does not hash to tokenHash.
// Editor-facing endpoints such as publish sit behind it.
func RequireAdminToken(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, err.Error(), http.StatusUnauthorized)
				return
			}
			if !auth.Matches(token, tokenHash) {
				writeError(w, "Invalid authorization token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
