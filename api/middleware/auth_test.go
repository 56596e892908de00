package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgauth "github.com/vendaflow/checkout-tracker/pkg/auth"
	"github.com/vendaflow/checkout-tracker/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "vendaflow-test",
		ExpirationMinutes: 60,
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, tenantID, scope string) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		TenantID: tenantID,
		Scope:    scope,
	})
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	return token
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recovery/sessions", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuth_MissingCredentials(t *testing.T) {
	handler := Auth(testJWTConfig(), pkgauth.ScopeRecoveryRead, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	handler := Auth(testJWTConfig(), pkgauth.ScopeRecoveryRead, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a bad token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("not-a-jwt"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	other := testJWTConfig()
	other.Secret = "different-secret"
	token := mintTestToken(t, other, "tenant-1", pkgauth.ScopeRecoveryRead)

	handler := Auth(testJWTConfig(), pkgauth.ScopeRecoveryRead, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a forged token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuth_InsufficientScope(t *testing.T) {
	cfg := testJWTConfig()
	token := mintTestToken(t, cfg, "tenant-1", "other:scope")

	handler := Auth(cfg, pkgauth.ScopeRecoveryRead, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without the required scope")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAuth_SeedsTenantContext(t *testing.T) {
	cfg := testJWTConfig()
	token := mintTestToken(t, cfg, "tenant-1", pkgauth.ScopeRecoveryRead)

	var gotTenant string
	handler := Auth(cfg, pkgauth.ScopeRecoveryRead, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := TenantIDFromContext(r.Context())
		if !ok {
			t.Fatal("tenant missing from context")
		}
		gotTenant = tenant
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotTenant != "tenant-1" {
		t.Fatalf("expected tenant-1, got %q", gotTenant)
	}
}
