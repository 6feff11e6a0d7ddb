package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const identityKey contextKey = "identity"

func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
			return
		}

		id, err := s.ValidateToken(parts[1])
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// FromQuery validates the token query parameter. Browsers cannot set
// headers on a websocket upgrade.
func (s *Service) FromQuery(r *http.Request) (Identity, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	return s.ValidateToken(token)
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func UserIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.ActorID
}
