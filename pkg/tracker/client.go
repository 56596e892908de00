package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendaflow/checkout-tracker/pkg/logger"
	"github.com/vendaflow/checkout-tracker/pkg/normalize"
	"github.com/vendaflow/checkout-tracker/pkg/types"
)

const defaultTimeout = 5 * time.Second

// Client fires the three lifecycle calls at the tracking endpoints. Every
// call is best-effort telemetry: transport failures are logged and swallowed
// so instrumentation can never block a purchase.
type Client struct {
	baseURL string
	http    *http.Client
	ids     *IdentityStore
	logg    *logger.Logger
}

// Options configures the tracking client.
type Options struct {
	// BaseURL is the tracking service origin, e.g. "https://track.vendaflow.io".
	BaseURL string
	// Storage backs the session identity; defaults to in-memory.
	Storage Storage
	// HTTPClient defaults to a client with a short timeout.
	HTTPClient *http.Client
	Logger     *logger.Logger
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("base url is required")
	}

	storage := opts.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		ids:     NewIdentityStore(storage),
		logg:    opts.Logger,
	}, nil
}

// StartParams carries the fields known when the shopper enters checkout.
// Nil fields are omitted from the payload so the service never nulls
// previously captured values.
type StartParams struct {
	TenantID       string
	CartID         *string
	CustomerID     *string
	CustomerEmail  *string
	CustomerPhone  *string
	CustomerName   *string
	Region         *string
	TotalEstimated *decimal.Decimal
	ItemsSnapshot  types.ItemsSnapshot
	UTM            types.UTMParams
	Metadata       types.Metadata
}

// HeartbeatParams carries the fields reported while the shopper moves
// through the checkout wizard.
type HeartbeatParams struct {
	TenantID       string
	CustomerEmail  *string
	CustomerPhone  *string
	CustomerName   *string
	TotalEstimated *decimal.Decimal
	ItemsSnapshot  types.ItemsSnapshot
	Step           *string
}

// CompleteParams carries the completion signal.
type CompleteParams struct {
	TenantID      string
	OrderID       *string
	CustomerEmail *string
	CustomerPhone *string
}

type trackingPayload struct {
	SessionID      string               `json:"session_id"`
	TenantID       string               `json:"tenant_id"`
	CartID         *string              `json:"cart_id,omitempty"`
	CustomerID     *string              `json:"customer_id,omitempty"`
	CustomerEmail  *string              `json:"customer_email,omitempty"`
	CustomerPhone  *string              `json:"customer_phone,omitempty"`
	CustomerName   *string              `json:"customer_name,omitempty"`
	Region         *string              `json:"region,omitempty"`
	TotalEstimated *decimal.Decimal     `json:"total_estimated,omitempty"`
	ItemsSnapshot  *types.ItemsSnapshot `json:"items_snapshot,omitempty"`
	UTM            types.UTMParams      `json:"utm,omitempty"`
	Metadata       types.Metadata       `json:"metadata,omitempty"`
	Step           *string              `json:"step,omitempty"`
	OrderID        *string              `json:"order_id,omitempty"`
}

// Start reports entry into checkout and returns the session identity so the
// caller can correlate. It never returns an error.
func (c *Client) Start(ctx context.Context, params StartParams) string {
	sessionID := c.ids.GetOrCreateID()

	payload := trackingPayload{
		SessionID:      sessionID,
		TenantID:       params.TenantID,
		CartID:         params.CartID,
		CustomerID:     params.CustomerID,
		CustomerEmail:  normalizedEmail(params.CustomerEmail),
		CustomerPhone:  normalizedPhone(params.CustomerPhone),
		CustomerName:   params.CustomerName,
		Region:         params.Region,
		TotalEstimated: params.TotalEstimated,
		UTM:            params.UTM,
		Metadata:       params.Metadata,
	}
	if params.ItemsSnapshot != nil {
		snapshot := params.ItemsSnapshot
		payload.ItemsSnapshot = &snapshot
	}

	c.post(ctx, "/checkout-session-start", payload)
	return sessionID
}

// Heartbeat reports continued activity. Without a stored identity there is
// nothing to update and the call is a no-op.
func (c *Client) Heartbeat(ctx context.Context, params HeartbeatParams) {
	sessionID, ok := c.ids.CurrentID()
	if !ok {
		return
	}

	payload := trackingPayload{
		SessionID:      sessionID,
		TenantID:       params.TenantID,
		CustomerEmail:  normalizedEmail(params.CustomerEmail),
		CustomerPhone:  normalizedPhone(params.CustomerPhone),
		CustomerName:   params.CustomerName,
		TotalEstimated: params.TotalEstimated,
		Step:           params.Step,
	}
	if params.ItemsSnapshot != nil {
		snapshot := params.ItemsSnapshot
		payload.ItemsSnapshot = &snapshot
	}

	c.post(ctx, "/checkout-session-heartbeat", payload)
}

// Complete reports the purchase and clears the stored identity regardless of
// the network outcome, so the next checkout starts fresh.
func (c *Client) Complete(ctx context.Context, params CompleteParams) {
	sessionID := c.ids.GetOrCreateID()
	defer c.ids.Clear()

	payload := trackingPayload{
		SessionID:     sessionID,
		TenantID:      params.TenantID,
		OrderID:       params.OrderID,
		CustomerEmail: normalizedEmail(params.CustomerEmail),
		CustomerPhone: normalizedPhone(params.CustomerPhone),
	}

	c.post(ctx, "/checkout-session-complete", payload)
}

func (c *Client) post(ctx context.Context, path string, payload trackingPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.logFailure(ctx, path, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		c.logFailure(ctx, path, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logFailure(ctx, path, err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		c.logFailure(ctx, path, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (c *Client) logFailure(ctx context.Context, path string, err error) {
	if c.logg == nil {
		return
	}
	logCtx := c.logg.WithField(ctx, "path", path)
	c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "tracker.call_failed")
}

func normalizedEmail(value *string) *string {
	if value == nil {
		return nil
	}
	normalized := normalize.Email(*value)
	return &normalized
}

func normalizedPhone(value *string) *string {
	if value == nil {
		return nil
	}
	normalized := normalize.Phone(*value)
	return &normalized
}
