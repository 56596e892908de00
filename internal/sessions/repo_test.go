package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendaflow/checkout-tracker/pkg/db/models"
	"github.com/vendaflow/checkout-tracker/pkg/enums"
	"github.com/vendaflow/checkout-tracker/pkg/pagination"
	"github.com/vendaflow/checkout-tracker/pkg/types"
)

func setupSessionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	checkoutSessions := `
CREATE TABLE IF NOT EXISTS checkout_sessions (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  cart_id TEXT,
  customer_id TEXT,
  customer_email TEXT,
  customer_phone TEXT,
  customer_name TEXT,
  region TEXT,
  total_estimated NUMERIC,
  items_snapshot TEXT NOT NULL,
  utm TEXT NOT NULL,
  metadata TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  recovery_status TEXT NOT NULL DEFAULT 'none',
  order_id TEXT,
  started_at DATETIME NOT NULL,
  last_seen_at DATETIME NOT NULL,
  abandoned_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT ux_checkout_sessions_natural UNIQUE (session_id, tenant_id)
);`
	require.NoError(t, db.Exec(checkoutSessions).Error)
	require.NoError(t, db.Exec("DELETE FROM checkout_sessions").Error)

	return db
}

func newSessionRow(sessionID, tenantID string, status enums.SessionStatus, lastSeen time.Time) *models.CheckoutSession {
	return &models.CheckoutSession{
		ID:             uuid.New(),
		SessionID:      sessionID,
		TenantID:       tenantID,
		Status:         status,
		RecoveryStatus: enums.RecoveryStatusNone,
		ItemsSnapshot:  types.ItemsSnapshot{},
		UTM:            types.UTMParams{},
		Metadata:       types.Metadata{},
		StartedAt:      lastSeen,
		LastSeenAt:     lastSeen,
	}
}

func TestRepository_NaturalKeyUnique(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newSessionRow("s1", "t1", enums.SessionStatusActive, now)))

	err := repo.Create(ctx, newSessionRow("s1", "t1", enums.SessionStatusActive, now))
	require.Error(t, err)

	// same session id under another tenant is a different session
	require.NoError(t, repo.Create(ctx, newSessionRow("s1", "t2", enums.SessionStatusActive, now)))
}

func TestRepository_UpdateGatedSkipsTerminalRows(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seen := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, repo.Create(ctx, newSessionRow("s1", "t1", enums.SessionStatusActive, seen)))
	require.NoError(t, repo.Create(ctx, newSessionRow("s2", "t1", enums.SessionStatusConverted, seen)))

	bump := time.Now().UTC().Truncate(time.Second)
	patch := models.CheckoutSession{LastSeenAt: bump}

	affected, err := repo.UpdateGated(ctx, "s1", "t1", enums.SessionStatusActive, patch, []string{"last_seen_at"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.UpdateGated(ctx, "s2", "t1", enums.SessionStatusActive, patch, []string{"last_seen_at"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	frozen, err := repo.FindByNaturalKey(ctx, "s2", "t1")
	require.NoError(t, err)
	assert.True(t, frozen.LastSeenAt.Equal(seen), "terminal row must keep its last_seen_at")
}

func TestRepository_UpdateGatedFoldsMetadata(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := newSessionRow("s1", "t1", enums.SessionStatusActive, time.Now().UTC())
	row.Metadata = types.Metadata{"source": "storefront"}
	require.NoError(t, repo.Create(ctx, row))

	patch := models.CheckoutSession{
		LastSeenAt: time.Now().UTC(),
		Metadata:   types.Metadata{"source": "storefront", "step": "shipping"},
	}
	affected, err := repo.UpdateGated(ctx, "s1", "t1", enums.SessionStatusActive, patch, []string{"last_seen_at", "metadata"})
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	loaded, err := repo.FindByNaturalKey(ctx, "s1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "shipping", loaded.Metadata["step"])
	assert.Equal(t, "storefront", loaded.Metadata["source"])
}

func TestRepository_FindStaleActive(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newSessionRow("stale", "t1", enums.SessionStatusActive, now.Add(-2*time.Hour))))
	require.NoError(t, repo.Create(ctx, newSessionRow("fresh", "t1", enums.SessionStatusActive, now)))
	require.NoError(t, repo.Create(ctx, newSessionRow("done", "t1", enums.SessionStatusConverted, now.Add(-2*time.Hour))))

	rows, err := repo.FindStaleActive(ctx, now.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "stale", rows[0].SessionID)
}

func TestRepository_FindStaleAbandoned(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	old := newSessionRow("old", "t1", enums.SessionStatusAbandoned, now.Add(-200*time.Hour))
	oldAt := now.Add(-200 * time.Hour)
	old.AbandonedAt = &oldAt
	require.NoError(t, repo.Create(ctx, old))

	recent := newSessionRow("recent", "t1", enums.SessionStatusAbandoned, now.Add(-time.Hour))
	recentAt := now.Add(-time.Hour)
	recent.AbandonedAt = &recentAt
	require.NoError(t, repo.Create(ctx, recent))

	rows, err := repo.FindStaleAbandoned(ctx, now.Add(-168*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "old", rows[0].SessionID)
}

func TestRepository_ListByTenantCursor(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, newSessionRow(id, "t1", enums.SessionStatusAbandoned, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, newSessionRow("other", "t2", enums.SessionStatusAbandoned, base)))

	status := enums.SessionStatusAbandoned
	first, err := repo.ListByTenant(ctx, ListParams{TenantID: "t1", Status: &status, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "c", first[0].SessionID)
	assert.Equal(t, "b", first[1].SessionID)

	cursor := pagination.EncodeCursor(pagination.Cursor{LastSeenAt: first[1].LastSeenAt, SessionID: first[1].SessionID})
	second, err := repo.ListByTenant(ctx, ListParams{TenantID: "t1", Status: &status, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "a", second[0].SessionID)
}
