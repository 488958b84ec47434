package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openforge/openforge-api/internal/apperror"
)

// contextKey keeps the user id entry private to this package.
type contextKey string

const userIDKey contextKey = "userID"

// Identify verifies a bearer token when one is present and stores its subject
// in the request context.
//
//   - no Authorization header   -> request continues anonymously
//   - valid bearer token        -> request continues with the user id set
//   - invalid bearer token      -> 401, chain stops
//
// A nil verifier (no JWKS configured) makes every request anonymous.
func Identify(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				logger.Info("rejected session token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","detail":"Invalid or expired session token"}`))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the verified user id, if Identify set one.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID returns a copy of ctx carrying a verified user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// ResolveUserID decides which user a request acts for.
//
// supplied is the user_id the client sent in the query or body. It is only
// trusted on its own when allowFallback is set, which keeps frontends that
// do not send session tokens yet working. A verified session always wins, and
// a supplied id that disagrees with it is refused.
func ResolveUserID(ctx context.Context, supplied string, allowFallback bool) (string, error) {
	if verified, ok := UserIDFromContext(ctx); ok {
		if supplied != "" && supplied != verified {
			return "", apperror.Forbidden("user_id does not match the authenticated user")
		}
		return verified, nil
	}

	if supplied != "" && allowFallback {
		return supplied, nil
	}
	return "", apperror.Unauthorized("Authentication required")
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
