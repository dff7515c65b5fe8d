package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/toto1384/doors-sub001/libs/auth"
	"github.com/toto1384/doors-sub001/libs/httpx"
)

type contextKey string

const userIDKey contextKey = "user_id"

// RequireAuth verifies the Bearer token and stashes the subject in the
// request context. Every business route runs behind it; role decisions
// (buyer vs seller) happen later against stored ownership, never from
// anything the client claims.
func RequireAuth(secret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := auth.ParseAndVerifyHS256(strings.TrimSpace(token), secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
