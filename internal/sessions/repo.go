package sessions

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vendaflow/checkout-tracker/pkg/db/models"
	"github.com/vendaflow/checkout-tracker/pkg/enums"
	"github.com/vendaflow/checkout-tracker/pkg/pagination"
)

// Repository exposes persistence operations for checkout session rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a session repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) SessionRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByNaturalKey loads the row for one browser session of one tenant.
func (r *Repository) FindByNaturalKey(ctx context.Context, sessionID, tenantID string) (*models.CheckoutSession, error) {
	var record models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND tenant_id = ?", sessionID, tenantID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new CheckoutSession.
func (r *Repository) Create(ctx context.Context, record *models.CheckoutSession) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Save persists the full record.
func (r *Repository) Save(ctx context.Context, record *models.CheckoutSession) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// UpdateGated applies patch columns to the row only while it still sits in
// the `from` status. The returned count is zero when the row has already
// moved on, which callers treat as a lost race rather than an error.
func (r *Repository) UpdateGated(ctx context.Context, sessionID, tenantID string, from enums.SessionStatus, patch models.CheckoutSession, columns []string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("session_id = ? AND tenant_id = ? AND status = ?", sessionID, tenantID, from).
		Select(columns).
		Updates(patch)
	return res.RowsAffected, res.Error
}

// FindStaleActive returns active sessions whose last heartbeat is older than
// the cutoff, oldest first.
func (r *Repository) FindStaleActive(ctx context.Context, olderThan time.Time, limit int) ([]models.CheckoutSession, error) {
	var rows []models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_seen_at < ?", enums.SessionStatusActive, olderThan).
		Order("last_seen_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// FindStaleAbandoned returns abandoned sessions whose recovery window closed
// before the cutoff, oldest first.
func (r *Repository) FindStaleAbandoned(ctx context.Context, olderThan time.Time, limit int) ([]models.CheckoutSession, error) {
	var rows []models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND abandoned_at IS NOT NULL AND abandoned_at < ?", enums.SessionStatusAbandoned, olderThan).
		Order("abandoned_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListByTenant pages one tenant's sessions newest-activity first. The caller
// passes a buffered limit to detect the next page.
func (r *Repository) ListByTenant(ctx context.Context, params ListParams) ([]models.CheckoutSession, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", params.TenantID).
		Order("last_seen_at DESC").
		Order("session_id DESC").
		Limit(params.Limit)

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		if cursor != nil {
			query = query.Where("(last_seen_at, session_id) < (?, ?)", cursor.LastSeenAt, cursor.SessionID)
		}
	}

	var rows []models.CheckoutSession
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
