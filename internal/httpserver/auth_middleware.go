package httpserver

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"wachat/internal/security"
)

type contextKey string

const userIDContextKey contextKey = "currentUserID"

// WithUserID returns a new context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// CurrentUserID extracts the authenticated user id from the request, if any.
func CurrentUserID(r *http.Request) string {
	if v, ok := r.Context().Value(userIDContextKey).(string); ok {
		return v
	}
	return ""
}

// AuthMiddleware validates the bearer token and attaches its subject, the
// user id, to the request context.
func AuthMiddleware(tokens *security.TokenService, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := security.BearerToken(r)
			if tokenStr == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody("missing or invalid Authorization header"))
				return
			}

			userID, err := tokens.Subject(tokenStr)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejecting token")
				writeJSON(w, http.StatusUnauthorized, errorBody("invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
