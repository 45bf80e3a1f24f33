package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"clave/internal/jwttoken"
	"clave/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RevocationChecker reports whether a token id has been logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type claimsKey struct{}

// ClaimsFrom returns the validated token claims attached by RequireAuth.
func ClaimsFrom(ctx context.Context) *jwttoken.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*jwttoken.Claims)
	return claims
}

// RequireAuth validates the bearer token, rejects revoked tokens, and seeds
// the request context with the caller's identity. A report-scoped token only
// passes when allowReportScope is set on the route group.
func RequireAuth(validator JWTValidator, trl RevocationChecker, logger *slog.Logger, allowReportScope bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				unauthorized(w, ctx, logger, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, ctx, logger, "Invalid or expired token")
				return
			}

			if claims.Scope == jwttoken.ScopeReport && !allowReportScope {
				unauthorized(w, ctx, logger, "Report token not valid for this endpoint")
				return
			}

			if trl != nil {
				revoked, err := trl.IsRevoked(ctx, claims.ID)
				if err != nil {
					logger.ErrorContext(ctx, "revocation check failed", "error", err)
					// Fail closed: a token we cannot verify does not pass.
					unauthorized(w, ctx, logger, "Invalid or expired token")
					return
				}
				if revoked {
					unauthorized(w, ctx, logger, "Token has been revoked")
					return
				}
			}

			userID, err := claims.ExtractUserID()
			if err != nil {
				unauthorized(w, ctx, logger, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			ctx = requestcontext.WithUserRole(ctx, claims.Role)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, ctx context.Context, logger *slog.Logger, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"unauthorized","message":"` + description + `"}`)); err != nil {
		logger.ErrorContext(ctx, "failed to write unauthorized response",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
