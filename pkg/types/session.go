package types

import "github.com/shopspring/decimal"

// SessionLineItem is one entry of a checkout session's items snapshot. The
// snapshot is a point-in-time copy of the cart and is replaced wholesale on
// every update; no historical versions are kept.
type SessionLineItem struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// ItemsSnapshot is the ordered list of line items reported by the client.
type ItemsSnapshot []SessionLineItem

// UTMParams carries attribution parameters captured at session creation.
type UTMParams map[string]string

// Metadata holds free-form auxiliary context. The checkout wizard step is
// folded in under the "step" key rather than living in its own column.
type Metadata map[string]any
