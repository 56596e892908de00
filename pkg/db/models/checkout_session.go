package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendaflow/checkout-tracker/pkg/enums"
	"github.com/vendaflow/checkout-tracker/pkg/types"
)

// CheckoutSession is one browser's checkout attempt for one tenant, tracked
// from checkout entry until conversion, abandonment, or expiry. Rows are
// never deleted; they remain as analytics and recovery records.
type CheckoutSession struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID string    `gorm:"column:session_id;type:text;not null;uniqueIndex:ux_checkout_sessions_natural,priority:1"`
	TenantID  string    `gorm:"column:tenant_id;type:text;not null;uniqueIndex:ux_checkout_sessions_natural,priority:2"`

	CartID        *string `gorm:"column:cart_id;type:text"`
	CustomerID    *string `gorm:"column:customer_id;type:text"`
	CustomerEmail *string `gorm:"column:customer_email;type:text"`
	CustomerPhone *string `gorm:"column:customer_phone;type:text"`
	CustomerName  *string `gorm:"column:customer_name;type:text"`
	Region        *string `gorm:"column:region;type:text"`

	TotalEstimated *decimal.Decimal    `gorm:"column:total_estimated;type:numeric(12,2)"`
	ItemsSnapshot  types.ItemsSnapshot `gorm:"column:items_snapshot;type:jsonb;serializer:json;not null"`
	UTM            types.UTMParams     `gorm:"column:utm;type:jsonb;serializer:json;not null"`
	Metadata       types.Metadata      `gorm:"column:metadata;type:jsonb;serializer:json;not null"`

	Status         enums.SessionStatus  `gorm:"column:status;type:text;not null;default:'active';index:ix_checkout_sessions_status_seen,priority:1"`
	RecoveryStatus enums.RecoveryStatus `gorm:"column:recovery_status;type:text;not null;default:'none'"`
	OrderID        *string              `gorm:"column:order_id;type:text"`

	StartedAt   time.Time  `gorm:"column:started_at;not null"`
	LastSeenAt  time.Time  `gorm:"column:last_seen_at;not null;index:ix_checkout_sessions_status_seen,priority:2"`
	AbandonedAt *time.Time `gorm:"column:abandoned_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name regardless of GORM pluralization rules.
func (CheckoutSession) TableName() string {
	return "checkout_sessions"
}

// AggregateID derives a stable uuid for outbox aggregation from the natural
// key, so retried emits for the same session collapse onto one aggregate.
func (c CheckoutSession) AggregateID() uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.TenantID+"|"+c.SessionID))
}
