// Package auth holds the admin-token middleware for the HTTP layer.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	jwttoken "idlink/internal/jwt_token"
	dErrors "idlink/pkg/domain-errors"
	"idlink/pkg/platform/httputil"
	"idlink/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RequireAdmin rejects requests without a valid admin bearer token. The
// admin's identifier is placed on the context for handlers and audit trails.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized admin request - missing token",
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized admin request - invalid token",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				}
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithAdminSubject(ctx, claims.AdminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
