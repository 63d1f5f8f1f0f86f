package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// AdminTokenHeader carries the admin token when a bearer token is not used.
const AdminTokenHeader = "X-Admin-Token"

// ErrAdminTokenRequired is returned when the admin middleware is built without a token.
var ErrAdminTokenRequired = errors.New("admin token is required")

// AdminTokenAuthMiddleware accepts requests that present token either as
// "Authorization: Bearer <token>" or in the X-Admin-Token header.
func AdminTokenAuthMiddleware(token string) (func(http.Handler) http.Handler, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrAdminTokenRequired
	}
	expected := sha256.Sum256([]byte(token))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := sha256.Sum256([]byte(presentedToken(r)))
			if subtle.ConstantTimeCompare(provided[:], expected[:]) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="joinpath-admin"`)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

func presentedToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, value, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
	}
	return strings.TrimSpace(r.Header.Get(AdminTokenHeader))
}
