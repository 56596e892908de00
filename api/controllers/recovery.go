package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendaflow/checkout-tracker/api/middleware"
	"github.com/vendaflow/checkout-tracker/api/responses"
	"github.com/vendaflow/checkout-tracker/api/validators"
	"github.com/vendaflow/checkout-tracker/internal/sessions"
	"github.com/vendaflow/checkout-tracker/pkg/db/models"
	"github.com/vendaflow/checkout-tracker/pkg/enums"
	pkgerrors "github.com/vendaflow/checkout-tracker/pkg/errors"
	"github.com/vendaflow/checkout-tracker/pkg/logger"
	"github.com/vendaflow/checkout-tracker/pkg/types"
)

// recoverySessionView is the wire shape of one session in the recovery feed.
type recoverySessionView struct {
	SessionID      string               `json:"session_id"`
	CartID         *string              `json:"cart_id,omitempty"`
	CustomerID     *string              `json:"customer_id,omitempty"`
	CustomerEmail  *string              `json:"customer_email,omitempty"`
	CustomerPhone  *string              `json:"customer_phone,omitempty"`
	CustomerName   *string              `json:"customer_name,omitempty"`
	Region         *string              `json:"region,omitempty"`
	TotalEstimated *decimal.Decimal     `json:"total_estimated,omitempty"`
	ItemsSnapshot  types.ItemsSnapshot  `json:"items_snapshot"`
	UTM            types.UTMParams      `json:"utm"`
	Metadata       types.Metadata       `json:"metadata"`
	Status         enums.SessionStatus  `json:"status"`
	RecoveryStatus enums.RecoveryStatus `json:"recovery_status"`
	OrderID        *string              `json:"order_id,omitempty"`
	StartedAt      time.Time            `json:"started_at"`
	LastSeenAt     time.Time            `json:"last_seen_at"`
	AbandonedAt    *time.Time           `json:"abandoned_at,omitempty"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
}

type recoveryFeedView struct {
	Sessions   []recoverySessionView `json:"sessions"`
	NextCursor *string               `json:"next_cursor,omitempty"`
}

// RecoverySessions handles GET /api/v1/recovery/sessions for re-engagement
// tooling. The tenant comes from the token, never from the query string.
func RecoverySessions(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := middleware.TenantIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant claim"))
			return
		}

		limit, err := validators.QueryInt(r, "limit", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := sessions.ListParams{
			TenantID: tenantID,
			Limit:    limit,
			Cursor:   validators.QueryString(r, "cursor"),
		}
		if raw := validators.QueryString(r, "status"); raw != "" {
			status, err := enums.ParseSessionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view := recoveryFeedView{
			Sessions:   make([]recoverySessionView, 0, len(result.Sessions)),
			NextCursor: result.NextCursor,
		}
		for _, row := range result.Sessions {
			view.Sessions = append(view.Sessions, toRecoverySessionView(row))
		}
		responses.WriteSuccess(w, view)
	}
}

func toRecoverySessionView(row models.CheckoutSession) recoverySessionView {
	return recoverySessionView{
		SessionID:      row.SessionID,
		CartID:         row.CartID,
		CustomerID:     row.CustomerID,
		CustomerEmail:  row.CustomerEmail,
		CustomerPhone:  row.CustomerPhone,
		CustomerName:   row.CustomerName,
		Region:         row.Region,
		TotalEstimated: row.TotalEstimated,
		ItemsSnapshot:  row.ItemsSnapshot,
		UTM:            row.UTM,
		Metadata:       row.Metadata,
		Status:         row.Status,
		RecoveryStatus: row.RecoveryStatus,
		OrderID:        row.OrderID,
		StartedAt:      row.StartedAt,
		LastSeenAt:     row.LastSeenAt,
		AbandonedAt:    row.AbandonedAt,
		CompletedAt:    row.CompletedAt,
	}
}
