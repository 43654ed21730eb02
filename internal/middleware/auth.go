package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"galactic-server/internal/auth"
	"galactic-server/internal/shared/cookies"
	"galactic-server/internal/shared/errors"
	"galactic-server/internal/shared/response"
)

type contextKey string

const UserContextKey contextKey = "user"

type Authenticator struct {
	verifier *auth.Verifier
}

func NewAuthenticator(verifier *auth.Verifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// JWT requires a valid token, taken from the Authorization header or, for
// browsers, from the auth cookie.
func (a *Authenticator) JWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "jwt",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Debug("Processing JWT authentication")

		token := bearerToken(r)
		if token == "" {
			token = cookies.AuthToken(r)
		}
		if token == "" {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		claims, err := a.verifier.Verify(token)
		if err != nil {
			response.Error(w, r, logger, errors.Unauthorized("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		logger.Debug("JWT authentication successful", "user_id", claims.UserID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func GetUserFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(UserContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
