package middleware

import (
	"net/http"
	"strings"

	"github.com/vendaflow/checkout-tracker/api/responses"
	pkgauth "github.com/vendaflow/checkout-tracker/pkg/auth"
	"github.com/vendaflow/checkout-tracker/pkg/config"
	pkgerrors "github.com/vendaflow/checkout-tracker/pkg/errors"
	"github.com/vendaflow/checkout-tracker/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// tenant claim. The public tracking endpoints never pass through here; this
// guards the recovery feed only.
func Auth(cfg config.JWTConfig, requiredScope string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if claims.TenantID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant claim"))
				return
			}
			if requiredScope != "" && !hasScope(claims.Scope, requiredScope) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient scope"))
				return
			}

			ctx := ContextWithTenant(r.Context(), claims.TenantID, claims.Scope)

			if logg != nil {
				ctx = logg.WithTenantID(ctx, claims.TenantID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasScope(granted, required string) bool {
	for _, scope := range strings.Fields(granted) {
		if scope == required {
			return true
		}
	}
	return false
}
