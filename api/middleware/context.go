package middleware

import "context"

type contextKey string

const (
	ctxTenantID contextKey = "tenant_id"
	ctxScope    contextKey = "token_scope"
)

// ContextWithTenant seeds the context the way the auth middleware does.
func ContextWithTenant(ctx context.Context, tenantID, scope string) context.Context {
	ctx = context.WithValue(ctx, ctxTenantID, tenantID)
	return context.WithValue(ctx, ctxScope, scope)
}

// TenantIDFromContext returns the tenant the request is authenticated for.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(ctxTenantID).(string)
	return value, ok && value != ""
}

// ScopeFromContext returns the token scope seeded by the auth middleware.
func ScopeFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(ctxScope).(string)
	return value, ok && value != ""
}
