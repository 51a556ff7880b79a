// serenity/middlewares/identity.go
package middlewares

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// UserIDKey is the context key under which the authenticated user's id is
// stored.
const UserIDKey contextKey = "user_id"

// IdentityMiddleware resolves the calling user from the X-User-ID header.
// Authentication itself happens upstream (gateway); this layer only trusts
// and parses the forwarded identity.
func IdentityMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-User-ID")
			if raw == "" {
				http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
				return
			}
			userID, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid X-User-ID header", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID pulls the resolved user id back out of the request context.
func UserID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(UserIDKey).(uuid.UUID)
	return id
}
