package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"couponverify/internal/auth"
)

type contextKey string

const claimsKey contextKey = "authClaims"

// RequireAuth validates the bearer token and stores the verified claims in the
// request context. Handlers read the actor identity from there, never from the
// request body.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if header == "" || token == header {
				deny(w, http.StatusUnauthorized, "访问令牌缺失")
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				deny(w, http.StatusForbidden, "访问令牌无效")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns a context carrying the authenticated claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom returns the claims stored by RequireAuth.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
