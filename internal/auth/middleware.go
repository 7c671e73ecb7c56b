package auth

import (
	"context"
	"fmt"
	"net/http"

	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/utils"
)

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	usernameKey contextKey = "username"
)

// Middleware rejects requests without a valid admin token:
// 401 when no token is presented, 403 when it does not verify.
func Middleware(tokens *TokenManager, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteMessage(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}

			claims, err := tokens.Parse(raw)
			if err == nil && claims.Scope != "" {
				err = fmt.Errorf("%w: %s token used as admin token", ErrInvalidToken, claims.Scope)
			}
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", fmt.Sprintf("%s %s from %s: %v", r.Method, r.URL.Path, r.RemoteAddr, err))
				utils.WriteMessage(w, http.StatusForbidden, "Invalid token.")
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StreamMiddleware guards the admin feed. It accepts the usual bearer header,
// or a stream token in the "token" query parameter for EventSource clients.
func StreamMiddleware(tokens *TokenManager, log *logger.Logger) func(http.Handler) http.Handler {
	header := Middleware(tokens, log)
	return func(next http.Handler) http.Handler {
		withHeader := header(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.URL.Query().Get("token")
			if raw == "" {
				withHeader.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Parse(raw)
			if err == nil && claims.Scope != scopeStream {
				err = fmt.Errorf("%w: query token is not a stream token", ErrInvalidToken)
			}
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", fmt.Sprintf("%s %s from %s: %v", r.Method, r.URL.Path, r.RemoteAddr, err))
				utils.WriteMessage(w, http.StatusForbidden, "Invalid token.")
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity stores the authenticated admin in ctx.
func WithIdentity(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, usernameKey, username)
}

func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}

func Username(ctx context.Context) string {
	if name, ok := ctx.Value(usernameKey).(string); ok {
		return name
	}
	return ""
}
