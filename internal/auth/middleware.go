package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/medialog/medialog/internal/domain"
)

type contextKey struct{ name string }

var userContextKey = &contextKey{"user"}

// UserLoader resolves a user id from token claims to a full account.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
}

// Middleware authenticates requests with a bearer token and places the
// resolved user in the request context. Requests without a valid token are
// rejected with 401.
func Middleware(manager *Manager, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := manager.Verify(token)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated requests from non-admin users.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsAdmin() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"code":"FORBIDDEN","message":"Admin role required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext extracts the authenticated user placed by Middleware.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userContextKey).(domain.User)
	return user, ok
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":"UNAUTHORIZED","message":"Missing or invalid authentication information"}`))
}
