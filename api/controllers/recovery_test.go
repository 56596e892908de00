package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vendaflow/checkout-tracker/api/middleware"
	"github.com/vendaflow/checkout-tracker/internal/sessions"
	"github.com/vendaflow/checkout-tracker/pkg/db/models"
	"github.com/vendaflow/checkout-tracker/pkg/enums"
	"github.com/vendaflow/checkout-tracker/pkg/types"
)

func getRecovery(t *testing.T, handler http.HandlerFunc, target string, tenantID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if tenantID != "" {
		req = req.WithContext(middleware.ContextWithTenant(req.Context(), tenantID, "recovery:read"))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRecoverySessions_ScopesToTokenTenant(t *testing.T) {
	var gotParams sessions.ListParams
	svc := &stubSessionService{
		listFn: func(ctx context.Context, params sessions.ListParams) (*sessions.ListResult, error) {
			gotParams = params
			return &sessions.ListResult{
				Sessions: []models.CheckoutSession{
					{
						SessionID:      "s1",
						TenantID:       params.TenantID,
						Status:         enums.SessionStatusAbandoned,
						RecoveryStatus: enums.RecoveryStatusPending,
						StartedAt:      time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
						LastSeenAt:     time.Date(2026, 8, 30, 10, 5, 0, 0, time.UTC),
						UTM:            types.UTMParams{"utm_source": "ads"},
						ItemsSnapshot:  types.ItemsSnapshot{},
						Metadata:       types.Metadata{},
					},
				},
			}, nil
		},
	}

	rec := getRecovery(t, RecoverySessions(svc, nil), "/api/v1/recovery/sessions?status=abandoned&limit=10&cursor=abc", "tenant-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotParams.TenantID != "tenant-1" {
		t.Fatalf("tenant must come from the token, got %q", gotParams.TenantID)
	}
	if gotParams.Limit != 10 || gotParams.Cursor != "abc" {
		t.Fatalf("query params not forwarded: %+v", gotParams)
	}
	if gotParams.Status == nil || *gotParams.Status != enums.SessionStatusAbandoned {
		t.Fatalf("status filter not forwarded: %v", gotParams.Status)
	}

	var envelope struct {
		Data recoveryFeedView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(envelope.Data.Sessions) != 1 || envelope.Data.Sessions[0].SessionID != "s1" {
		t.Fatalf("unexpected feed %+v", envelope.Data)
	}
	if envelope.Data.Sessions[0].RecoveryStatus != enums.RecoveryStatusPending {
		t.Fatalf("recovery status not mapped: %+v", envelope.Data.Sessions[0])
	}
}

func TestRecoverySessions_NextCursor(t *testing.T) {
	cursor := "next-page"
	svc := &stubSessionService{
		listFn: func(ctx context.Context, params sessions.ListParams) (*sessions.ListResult, error) {
			return &sessions.ListResult{NextCursor: &cursor}, nil
		},
	}

	rec := getRecovery(t, RecoverySessions(svc, nil), "/api/v1/recovery/sessions", "tenant-1")

	var envelope struct {
		Data recoveryFeedView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if envelope.Data.NextCursor == nil || *envelope.Data.NextCursor != "next-page" {
		t.Fatalf("cursor not surfaced: %+v", envelope.Data)
	}
}

func TestRecoverySessions_MissingTenant(t *testing.T) {
	rec := getRecovery(t, RecoverySessions(&stubSessionService{}, nil), "/api/v1/recovery/sessions", "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without tenant, got %d", rec.Code)
	}
}

func TestRecoverySessions_InvalidStatus(t *testing.T) {
	called := false
	svc := &stubSessionService{
		listFn: func(ctx context.Context, params sessions.ListParams) (*sessions.ListResult, error) {
			called = true
			return &sessions.ListResult{}, nil
		},
	}

	rec := getRecovery(t, RecoverySessions(svc, nil), "/api/v1/recovery/sessions?status=bogus", "tenant-1")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if called {
		t.Fatal("service must not be invoked for an invalid filter")
	}
}

func TestRecoverySessions_InvalidLimit(t *testing.T) {
	rec := getRecovery(t, RecoverySessions(&stubSessionService{}, nil), "/api/v1/recovery/sessions?limit=oops", "tenant-1")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
