package server

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type ctxKey int

const ctxKeyPlayer ctxKey = iota

// usernameHeader carries the acting player's name, set by the hosting
// platform in front of this service.
const usernameHeader = "X-Username"

const maxUsernameLen = 64

func playerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.Header.Get(usernameHeader))
		if name == "" {
			writeError(w, http.StatusUnauthorized, "missing "+usernameHeader+" header")
			return
		}
		if len(name) > maxUsernameLen {
			writeError(w, http.StatusBadRequest, "username too long")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyPlayer, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func playerFrom(r *http.Request) string {
	return r.Context().Value(ctxKeyPlayer).(string)
}

// hostKeyMiddleware requires a bearer token matching hash. An empty hash
// lets every request through.
func hostKeyMiddleware(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || token == "" {
				writeError(w, http.StatusUnauthorized, "host key required")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
				writeError(w, http.StatusUnauthorized, "invalid host key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
