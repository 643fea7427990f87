package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tourchat/tourchat/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionResolver maps a bearer token to a live session.
// *session.Controller satisfies this interface.
type SessionResolver interface {
	Resolve(token string) (*session.Session, error)
}

// SessionAuth returns middleware that validates the Authorization:
// Bearer <token> header against the live session set and stores the
// resolved session in the request context. Logged-out and expired tokens
// are rejected even when their signature is valid.
func SessionAuth(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w)
				return
			}

			s, err := resolver.Resolve(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
		})
	}
}

// sessionFrom returns the session stored by SessionAuth.
func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
