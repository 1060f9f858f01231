package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/chatq/assist-backend/internal/services"
)

// JWT validates the Authorization bearer token on admin endpoints and
// attaches the claims to the request context. The actor's tenant from the
// claims becomes the request tenant, so admin handlers never trust the
// tenant header.
func JWT(users *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing or invalid token", http.StatusUnauthorized)
				return
			}

			claims, err := users.ParseToken(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, tenantKey, claims.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the authenticated admin claims, if any.
func ClaimsFromContext(ctx context.Context) (*services.AuthClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*services.AuthClaims)
	return c, ok
}
