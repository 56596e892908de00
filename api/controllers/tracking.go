package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vendaflow/checkout-tracker/api/responses"
	"github.com/vendaflow/checkout-tracker/api/validators"
	"github.com/vendaflow/checkout-tracker/internal/sessions"
	pkgerrors "github.com/vendaflow/checkout-tracker/pkg/errors"
	"github.com/vendaflow/checkout-tracker/pkg/logger"
	"github.com/vendaflow/checkout-tracker/pkg/types"
)

// The tracking endpoints answer every business outcome at HTTP 200. The
// storefront client treats any transport-level failure as "telemetry lost"
// and moves on, so only infrastructure faults surface as HTTP errors.

type trackingStartRequest struct {
	SessionID      string              `json:"session_id"`
	TenantID       string              `json:"tenant_id"`
	CartID         *string             `json:"cart_id"`
	CustomerID     *string             `json:"customer_id"`
	CustomerEmail  *string             `json:"customer_email"`
	CustomerPhone  *string             `json:"customer_phone"`
	CustomerName   *string             `json:"customer_name"`
	Region         *string             `json:"region"`
	TotalEstimated *decimal.Decimal    `json:"total_estimated"`
	ItemsSnapshot  types.ItemsSnapshot `json:"items_snapshot"`
	UTM            types.UTMParams     `json:"utm"`
	Metadata       types.Metadata      `json:"metadata"`
}

type trackingHeartbeatRequest struct {
	SessionID      string              `json:"session_id"`
	TenantID       string              `json:"tenant_id"`
	CustomerEmail  *string             `json:"customer_email"`
	CustomerPhone  *string             `json:"customer_phone"`
	CustomerName   *string             `json:"customer_name"`
	Region         *string             `json:"region"`
	TotalEstimated *decimal.Decimal    `json:"total_estimated"`
	ItemsSnapshot  types.ItemsSnapshot `json:"items_snapshot"`
	Step           *string             `json:"step"`
}

type trackingCompleteRequest struct {
	SessionID     string  `json:"session_id"`
	TenantID      string  `json:"tenant_id"`
	OrderID       *string `json:"order_id"`
	CustomerEmail *string `json:"customer_email"`
	CustomerPhone *string `json:"customer_phone"`
}

// TrackingStart handles POST /checkout-session-start.
func TrackingStart(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req trackingStartRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteTrackingError(w, "invalid request body")
			return
		}

		result, err := svc.Start(r.Context(), sessions.StartInput{
			SessionID:      req.SessionID,
			TenantID:       req.TenantID,
			CartID:         req.CartID,
			CustomerID:     req.CustomerID,
			CustomerEmail:  req.CustomerEmail,
			CustomerPhone:  req.CustomerPhone,
			CustomerName:   req.CustomerName,
			Region:         req.Region,
			TotalEstimated: req.TotalEstimated,
			Items:          req.ItemsSnapshot,
			UTM:            req.UTM,
			Metadata:       req.Metadata,
		})
		if err != nil {
			writeTrackingFailure(w, r, logg, err)
			return
		}

		responses.WriteTracking(w, map[string]any{
			"success":    true,
			"session_id": result.Session.SessionID,
			"action":     result.Action,
			"status":     result.Status,
		})
	}
}

// TrackingHeartbeat handles POST /checkout-session-heartbeat.
func TrackingHeartbeat(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req trackingHeartbeatRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteTrackingError(w, "invalid request body")
			return
		}

		result, err := svc.Heartbeat(r.Context(), sessions.HeartbeatInput{
			SessionID:      req.SessionID,
			TenantID:       req.TenantID,
			CustomerEmail:  req.CustomerEmail,
			CustomerPhone:  req.CustomerPhone,
			CustomerName:   req.CustomerName,
			Region:         req.Region,
			TotalEstimated: req.TotalEstimated,
			Items:          req.ItemsSnapshot,
			Step:           req.Step,
		})
		if err != nil {
			writeTrackingFailure(w, r, logg, err)
			return
		}

		if !result.Applied {
			responses.WriteTracking(w, map[string]any{
				"success":    false,
				"session_id": req.SessionID,
				"reason":     sessions.ReasonSessionNotActive,
			})
			return
		}

		responses.WriteTracking(w, map[string]any{
			"success":    true,
			"session_id": req.SessionID,
			"status":     result.Status,
		})
	}
}

// TrackingComplete handles POST /checkout-session-complete. Repeated calls
// for the same session acknowledge without erroring.
func TrackingComplete(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req trackingCompleteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteTrackingError(w, "invalid request body")
			return
		}

		result, err := svc.Complete(r.Context(), sessions.CompleteInput{
			SessionID:     req.SessionID,
			TenantID:      req.TenantID,
			OrderID:       req.OrderID,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
		})
		if err != nil {
			writeTrackingFailure(w, r, logg, err)
			return
		}

		payload := map[string]any{
			"success":    true,
			"session_id": req.SessionID,
		}
		if result.Status != "" {
			payload["status"] = result.Status
		}
		responses.WriteTracking(w, payload)
	}
}

// writeTrackingFailure maps validation errors onto the flat business error
// shape and keeps real infrastructure faults on the typed error path.
func writeTrackingFailure(w http.ResponseWriter, r *http.Request, logg *logger.Logger, err error) {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
		responses.WriteTrackingError(w, typed.Message())
		return
	}
	responses.WriteError(r.Context(), logg, w, err)
}
