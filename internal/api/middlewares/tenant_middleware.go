package middleware

import (
	"context"
	"net/http"
	"strings"
)

// DefaultTenant is assumed when the widget sends no tenant header.
const DefaultTenant = "default-tenant"

const tenantHeader = "X-Tenant-ID"

type ctxKey int

const (
	tenantKey ctxKey = iota
	claimsKey
)

// Tenant resolves the tenant for public widget endpoints from the
// X-Tenant-ID header and attaches it to the request context.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := strings.TrimSpace(r.Header.Get(tenantHeader))
		if tenant == "" {
			tenant = DefaultTenant
		}
		ctx := context.WithValue(r.Context(), tenantKey, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantFromContext returns the tenant id set by Tenant or TenantFromClaims.
func TenantFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(tenantKey).(string); ok {
		return t
	}
	return DefaultTenant
}
