package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type capturedCall struct {
	path    string
	payload trackingPayload
}

func newCaptureServer(t *testing.T) (*httptest.Server, func() []capturedCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []capturedCall

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload trackingPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		mu.Lock()
		calls = append(calls, capturedCall{path: r.URL.Path, payload: payload})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	t.Cleanup(server.Close)

	return server, func() []capturedCall {
		mu.Lock()
		defer mu.Unlock()
		out := make([]capturedCall, len(calls))
		copy(out, calls)
		return out
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := New(Options{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return client
}

func TestClient_StartNormalizesContact(t *testing.T) {
	server, calls := newCaptureServer(t)
	client := newTestClient(t, server.URL)

	email := "  Ana.Silva@Example.COM "
	phone := "(11) 98888-7777"
	sessionID := client.Start(context.Background(), StartParams{
		TenantID:      "t1",
		CustomerEmail: &email,
		CustomerPhone: &phone,
	})

	got := calls()
	if len(got) != 1 || got[0].path != "/checkout-session-start" {
		t.Fatalf("unexpected calls %+v", got)
	}
	payload := got[0].payload
	if payload.SessionID != sessionID || payload.TenantID != "t1" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.CustomerEmail == nil || *payload.CustomerEmail != "ana.silva@example.com" {
		t.Fatalf("email not normalized: %v", payload.CustomerEmail)
	}
	if payload.CustomerPhone == nil || *payload.CustomerPhone != "11988887777" {
		t.Fatalf("phone not normalized: %v", payload.CustomerPhone)
	}
}

func TestClient_StartReusesIdentity(t *testing.T) {
	server, calls := newCaptureServer(t)
	client := newTestClient(t, server.URL)

	first := client.Start(context.Background(), StartParams{TenantID: "t1"})
	second := client.Start(context.Background(), StartParams{TenantID: "t1"})

	if first != second {
		t.Fatalf("identity must survive repeated starts, got %q then %q", first, second)
	}
	if got := calls(); len(got) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(got))
	}
}

func TestClient_HeartbeatNoopWithoutIdentity(t *testing.T) {
	server, calls := newCaptureServer(t)
	client := newTestClient(t, server.URL)

	client.Heartbeat(context.Background(), HeartbeatParams{TenantID: "t1"})

	if got := calls(); len(got) != 0 {
		t.Fatalf("heartbeat without identity must not hit the network, got %+v", got)
	}
}

func TestClient_HeartbeatCarriesStep(t *testing.T) {
	server, calls := newCaptureServer(t)
	client := newTestClient(t, server.URL)

	client.Start(context.Background(), StartParams{TenantID: "t1"})
	step := "payment"
	client.Heartbeat(context.Background(), HeartbeatParams{TenantID: "t1", Step: &step})

	got := calls()
	if len(got) != 2 || got[1].path != "/checkout-session-heartbeat" {
		t.Fatalf("unexpected calls %+v", got)
	}
	if got[1].payload.Step == nil || *got[1].payload.Step != "payment" {
		t.Fatalf("step not forwarded: %v", got[1].payload.Step)
	}
}

func TestClient_CompleteClearsIdentity(t *testing.T) {
	server, calls := newCaptureServer(t)
	client := newTestClient(t, server.URL)

	before := client.Start(context.Background(), StartParams{TenantID: "t1"})
	orderID := "order-1"
	client.Complete(context.Background(), CompleteParams{TenantID: "t1", OrderID: &orderID})
	after := client.Start(context.Background(), StartParams{TenantID: "t1"})

	if before == after {
		t.Fatalf("identity must rotate after complete, got %q twice", before)
	}
	got := calls()
	if len(got) != 3 || got[1].path != "/checkout-session-complete" {
		t.Fatalf("unexpected calls %+v", got)
	}
	if got[1].payload.OrderID == nil || *got[1].payload.OrderID != "order-1" {
		t.Fatalf("order id not forwarded: %v", got[1].payload.OrderID)
	}
}

func TestClient_CompleteClearsIdentityOnTransportFailure(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")

	before := client.Start(context.Background(), StartParams{TenantID: "t1"})
	client.Complete(context.Background(), CompleteParams{TenantID: "t1"})
	after := client.Start(context.Background(), StartParams{TenantID: "t1"})

	if before == after {
		t.Fatal("identity must be cleared even when the network call fails")
	}
}

func TestClient_SwallowsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	client := newTestClient(t, server.URL)

	client.Start(context.Background(), StartParams{TenantID: "t1"})
	client.Heartbeat(context.Background(), HeartbeatParams{TenantID: "t1"})
	client.Complete(context.Background(), CompleteParams{TenantID: "t1"})
}
