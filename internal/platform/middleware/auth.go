package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/requestcontext"
)

// TokenValidator validates a staff bearer token and returns the claims the
// middleware cares about.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims represents the claims expected from the validator.
type TokenClaims struct {
	UserID string
	Role   string
}

// RequireAuth enforces bearer token auth on staff endpoints. The validated user
// ID lands in the request context for handlers and audit trails.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "token validation failed",
					"error", err.Error(),
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w, "invalid token")
				return
			}
			ctx := requestcontext.WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + msg + `"}`))
}
