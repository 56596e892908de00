package sessions

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vendaflow/checkout-tracker/pkg/db/models"
	"github.com/vendaflow/checkout-tracker/pkg/enums"
)

// SessionRepository exposes persistence operations for checkout session rows.
type SessionRepository interface {
	WithTx(tx *gorm.DB) SessionRepository
	FindByNaturalKey(ctx context.Context, sessionID, tenantID string) (*models.CheckoutSession, error)
	Create(ctx context.Context, record *models.CheckoutSession) error
	Save(ctx context.Context, record *models.CheckoutSession) error
	UpdateGated(ctx context.Context, sessionID, tenantID string, from enums.SessionStatus, patch models.CheckoutSession, columns []string) (int64, error)
	FindStaleActive(ctx context.Context, olderThan time.Time, limit int) ([]models.CheckoutSession, error)
	FindStaleAbandoned(ctx context.Context, olderThan time.Time, limit int) ([]models.CheckoutSession, error)
	ListByTenant(ctx context.Context, params ListParams) ([]models.CheckoutSession, error)
}
