package daemon

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
)

// AccountHeader carries the acting account id. Identity issuance happens
// upstream of the daemon.
const AccountHeader = "X-Account-ID"

type accountKey struct{}

// authMiddleware returns a middleware that validates bearer tokens.
// If token is empty, no authentication is required and all requests pass through.
// Otherwise, requests must include "Authorization: Bearer <token>" header.
func authMiddleware(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, "Bearer ")), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// accountMiddleware resolves the acting account from the request header.
func accountMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(AccountHeader))
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			writeError(w, http.StatusUnauthorized, "missing or invalid "+AccountHeader+" header")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, id)))
	}
}

func accountFromRequest(r *http.Request) int64 {
	id, _ := r.Context().Value(accountKey{}).(int64)
	return id
}
