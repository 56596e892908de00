package sessions

import (
	"github.com/shopspring/decimal"

	"github.com/vendaflow/checkout-tracker/pkg/db/models"
	"github.com/vendaflow/checkout-tracker/pkg/enums"
	"github.com/vendaflow/checkout-tracker/pkg/types"
)

const (
	// ActionCreated reports that start inserted a new session row.
	ActionCreated = "created"
	// ActionUpdated reports that start refreshed an existing row.
	ActionUpdated = "updated"

	// ReasonSessionNotActive signals a heartbeat that matched no active row.
	ReasonSessionNotActive = "session_not_active"
)

// StartInput carries the start payload. Nil pointers and nil collections mean
// "not supplied"; supplied fields overwrite, absent fields are left untouched.
type StartInput struct {
	SessionID      string
	TenantID       string
	CartID         *string
	CustomerID     *string
	CustomerEmail  *string
	CustomerPhone  *string
	CustomerName   *string
	Region         *string
	TotalEstimated *decimal.Decimal
	Items          types.ItemsSnapshot
	UTM            types.UTMParams
	Metadata       types.Metadata
}

// StartResult reports whether the upsert created or updated the row.
type StartResult struct {
	Action  string
	Status  enums.SessionStatus
	Session *models.CheckoutSession
}

// HeartbeatInput carries the heartbeat payload. Step, when present, replaces
// the previously recorded wizard step inside the metadata map.
type HeartbeatInput struct {
	SessionID      string
	TenantID       string
	CustomerEmail  *string
	CustomerPhone  *string
	CustomerName   *string
	Region         *string
	TotalEstimated *decimal.Decimal
	Items          types.ItemsSnapshot
	Step           *string
}

// HeartbeatResult distinguishes an applied heartbeat from the non-error
// "session not active" outcome.
type HeartbeatResult struct {
	Applied bool
	Status  enums.SessionStatus
}

// CompleteInput carries the completion payload.
type CompleteInput struct {
	SessionID     string
	TenantID      string
	OrderID       *string
	CustomerEmail *string
	CustomerPhone *string
}

// CompleteResult reports the terminal state after a completion call. Applied
// is false when the call was an idempotent no-op against an already terminal
// or unknown session.
type CompleteResult struct {
	Applied   bool
	Status    enums.SessionStatus
	Recovered bool
}

// ListParams filters the recovery feed for one tenant.
type ListParams struct {
	TenantID string
	Status   *enums.SessionStatus
	Limit    int
	Cursor   string
}

// ListResult is one page of the recovery feed.
type ListResult struct {
	Sessions   []models.CheckoutSession
	NextCursor *string
}
