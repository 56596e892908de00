package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	dbpkg "github.com/vendaflow/checkout-tracker/pkg/db"
	"github.com/vendaflow/checkout-tracker/pkg/db/models"
	"github.com/vendaflow/checkout-tracker/pkg/enums"
	pkgerrors "github.com/vendaflow/checkout-tracker/pkg/errors"
	"github.com/vendaflow/checkout-tracker/pkg/logger"
	"github.com/vendaflow/checkout-tracker/pkg/metrics"
	"github.com/vendaflow/checkout-tracker/pkg/normalize"
	"github.com/vendaflow/checkout-tracker/pkg/outbox"
	"github.com/vendaflow/checkout-tracker/pkg/pagination"
	"github.com/vendaflow/checkout-tracker/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service implements the checkout session lifecycle state machine.
type Service interface {
	Start(ctx context.Context, input StartInput) (*StartResult, error)
	Heartbeat(ctx context.Context, input HeartbeatInput) (*HeartbeatResult, error)
	Complete(ctx context.Context, input CompleteInput) (*CompleteResult, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkAbandoned(ctx context.Context, olderThan time.Time, batch int) (int, error)
	ExpireAbandoned(ctx context.Context, olderThan time.Time, batch int) (int, error)
}

type service struct {
	repo    SessionRepository
	tx      txRunner
	emitter outboxEmitter
	counts  *metrics.SessionMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a session lifecycle service backed by the provided stack.
func NewService(repo SessionRepository, tx txRunner, emitter outboxEmitter, counts *metrics.SessionMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		emitter: emitter,
		counts:  counts,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// sessionEventPayload is the outbox payload for every lifecycle event.
type sessionEventPayload struct {
	SessionID      string               `json:"session_id"`
	TenantID       string               `json:"tenant_id"`
	Status         enums.SessionStatus  `json:"status"`
	RecoveryStatus enums.RecoveryStatus `json:"recovery_status"`
	OrderID        *string              `json:"order_id,omitempty"`
}

// Start performs the natural-key upsert. A missing row is inserted as a fresh
// active session; an existing row absorbs only the supplied fields so retried
// start calls never null out previously captured contact data.
func (s *service) Start(ctx context.Context, input StartInput) (*StartResult, error) {
	sessionID, tenantID, err := requireNaturalKey(input.SessionID, input.TenantID)
	if err != nil {
		return nil, err
	}
	normalizeContact(input.CustomerEmail, input.CustomerPhone)

	existing, err := s.repo.FindByNaturalKey(ctx, sessionID, tenantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}

	if existing != nil {
		return s.refresh(ctx, existing, input)
	}

	now := s.now()
	record := &models.CheckoutSession{
		SessionID:      sessionID,
		TenantID:       tenantID,
		Status:         enums.SessionStatusActive,
		RecoveryStatus: enums.RecoveryStatusNone,
		StartedAt:      now,
		LastSeenAt:     now,
		ItemsSnapshot:  emptyIfNilItems(input.Items),
		UTM:            emptyIfNilUTM(input.UTM),
		Metadata:       emptyIfNilMetadata(input.Metadata),
	}
	applyFields(record, fieldPatch{
		CartID:         input.CartID,
		CustomerID:     input.CustomerID,
		CustomerEmail:  input.CustomerEmail,
		CustomerPhone:  input.CustomerPhone,
		CustomerName:   input.CustomerName,
		Region:         input.Region,
		TotalEstimated: input.TotalEstimated,
	})

	if err := s.repo.Create(ctx, record); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_checkout_sessions_natural") {
			// lost the insert race; fall back to the update path
			existing, findErr := s.repo.FindByNaturalKey(ctx, sessionID, tenantID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load checkout session after conflict")
			}
			return s.refresh(ctx, existing, input)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	s.counts.IncStarted()
	if s.logg != nil {
		logCtx := s.logg.WithSessionID(s.logg.WithTenantID(ctx, tenantID), sessionID)
		s.logg.Info(logCtx, "checkout session created")
	}
	return &StartResult{Action: ActionCreated, Status: record.Status, Session: record}, nil
}

// refresh applies the partial update half of the start upsert. The utm and
// metadata maps are creation-only; status is never touched here.
func (s *service) refresh(ctx context.Context, record *models.CheckoutSession, input StartInput) (*StartResult, error) {
	applyFields(record, fieldPatch{
		CartID:         input.CartID,
		CustomerID:     input.CustomerID,
		CustomerEmail:  input.CustomerEmail,
		CustomerPhone:  input.CustomerPhone,
		CustomerName:   input.CustomerName,
		Region:         input.Region,
		TotalEstimated: input.TotalEstimated,
	})
	if input.Items != nil {
		record.ItemsSnapshot = input.Items
	}
	record.LastSeenAt = s.now()

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update checkout session")
	}
	return &StartResult{Action: ActionUpdated, Status: record.Status, Session: record}, nil
}

// Heartbeat bumps last_seen_at and folds in the supplied fields, gated on the
// row still being active. A terminal or unknown session yields Applied=false
// and is never an error.
func (s *service) Heartbeat(ctx context.Context, input HeartbeatInput) (*HeartbeatResult, error) {
	sessionID, tenantID, err := requireNaturalKey(input.SessionID, input.TenantID)
	if err != nil {
		return nil, err
	}
	normalizeContact(input.CustomerEmail, input.CustomerPhone)

	record, err := s.repo.FindByNaturalKey(ctx, sessionID, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.counts.IncHeartbeat("rejected")
			return &HeartbeatResult{Applied: false}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	if record.Status != enums.SessionStatusActive {
		s.counts.IncHeartbeat("rejected")
		return &HeartbeatResult{Applied: false, Status: record.Status}, nil
	}

	patch := models.CheckoutSession{LastSeenAt: s.now()}
	columns := []string{"last_seen_at"}

	if input.CustomerEmail != nil {
		patch.CustomerEmail = input.CustomerEmail
		columns = append(columns, "customer_email")
	}
	if input.CustomerPhone != nil {
		patch.CustomerPhone = input.CustomerPhone
		columns = append(columns, "customer_phone")
	}
	if input.CustomerName != nil {
		patch.CustomerName = input.CustomerName
		columns = append(columns, "customer_name")
	}
	if input.Region != nil {
		patch.Region = input.Region
		columns = append(columns, "region")
	}
	if input.TotalEstimated != nil {
		patch.TotalEstimated = input.TotalEstimated
		columns = append(columns, "total_estimated")
	}
	if input.Items != nil {
		patch.ItemsSnapshot = input.Items
		columns = append(columns, "items_snapshot")
	}
	if input.Step != nil {
		meta := record.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		meta["step"] = *input.Step
		patch.Metadata = meta
		columns = append(columns, "metadata")
	}

	affected, err := s.repo.UpdateGated(ctx, sessionID, tenantID, enums.SessionStatusActive, patch, columns)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "heartbeat checkout session")
	}
	if affected == 0 {
		// reclassified between the read and the gated write
		s.counts.IncHeartbeat("rejected")
		return &HeartbeatResult{Applied: false, Status: record.Status}, nil
	}

	s.counts.IncHeartbeat("applied")
	return &HeartbeatResult{Applied: true, Status: enums.SessionStatusActive}, nil
}

// Complete converts the session. Completing an abandoned session counts as a
// recovery win; completing an already terminal or unknown session is an
// idempotent acknowledgement because the client cannot tell whether its first
// call landed.
func (s *service) Complete(ctx context.Context, input CompleteInput) (*CompleteResult, error) {
	sessionID, tenantID, err := requireNaturalKey(input.SessionID, input.TenantID)
	if err != nil {
		return nil, err
	}
	normalizeContact(input.CustomerEmail, input.CustomerPhone)

	var result CompleteResult
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.FindByNaturalKey(ctx, sessionID, tenantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = CompleteResult{Applied: false}
				return nil
			}
			return err
		}

		switch record.Status {
		case enums.SessionStatusConverted, enums.SessionStatusExpired:
			result = CompleteResult{Applied: false, Status: record.Status}
			return nil
		case enums.SessionStatusActive, enums.SessionStatusAbandoned:
			// proceed
		default:
			return fmt.Errorf("unexpected session status %q", record.Status)
		}

		recovered := record.Status == enums.SessionStatusAbandoned
		now := s.now()
		patch := models.CheckoutSession{
			Status:      enums.SessionStatusConverted,
			CompletedAt: &now,
			LastSeenAt:  now,
		}
		columns := []string{"status", "completed_at", "last_seen_at"}
		if recovered {
			patch.RecoveryStatus = enums.RecoveryStatusRecovered
			columns = append(columns, "recovery_status")
		}
		if input.OrderID != nil {
			patch.OrderID = input.OrderID
			columns = append(columns, "order_id")
		}
		if input.CustomerEmail != nil {
			patch.CustomerEmail = input.CustomerEmail
			columns = append(columns, "customer_email")
		}
		if input.CustomerPhone != nil {
			patch.CustomerPhone = input.CustomerPhone
			columns = append(columns, "customer_phone")
		}

		affected, err := repo.UpdateGated(ctx, sessionID, tenantID, record.Status, patch, columns)
		if err != nil {
			return err
		}
		if affected == 0 {
			result = CompleteResult{Applied: false, Status: record.Status}
			return nil
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventSessionConverted,
			AggregateType: enums.AggregateCheckoutSession,
			AggregateID:   record.AggregateID(),
			Version:       1,
			OccurredAt:    now,
			Data: sessionEventPayload{
				SessionID:      sessionID,
				TenantID:       tenantID,
				Status:         enums.SessionStatusConverted,
				RecoveryStatus: patch.RecoveryStatus,
				OrderID:        input.OrderID,
			},
		}
		if err := s.emitter.EmitIfNotExists(ctx, tx, event); err != nil {
			return err
		}

		result = CompleteResult{Applied: true, Status: enums.SessionStatusConverted, Recovered: recovered}
		return nil
	})
	if txErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "complete checkout session")
	}

	if result.Applied {
		s.counts.IncCompleted(result.Recovered)
		if s.logg != nil {
			logCtx := s.logg.WithSessionID(s.logg.WithTenantID(ctx, tenantID), sessionID)
			s.logg.Info(logCtx, "checkout session converted")
		}
	}
	return &result, nil
}

// List pages one tenant's sessions for the recovery feed.
func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if strings.TrimSpace(params.TenantID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant_id is required")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	params.Limit = pagination.LimitWithBuffer(limit)

	rows, err := s.repo.ListByTenant(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list checkout sessions")
	}

	result := &ListResult{Sessions: rows}
	if len(rows) > limit {
		result.Sessions = rows[:limit]
		last := result.Sessions[limit-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{
			LastSeenAt: last.LastSeenAt,
			SessionID:  last.SessionID,
		})
		result.NextCursor = &cursor
	}
	return result, nil
}

// MarkAbandoned reclassifies active sessions last seen before olderThan. Each
// row transitions in its own transaction so one bad row cannot wedge the
// whole batch; per-row failures are joined and reported together.
func (s *service) MarkAbandoned(ctx context.Context, olderThan time.Time, batch int) (int, error) {
	rows, err := s.repo.FindStaleActive(ctx, olderThan, batch)
	if err != nil {
		return 0, fmt.Errorf("find stale active sessions: %w", err)
	}

	var transitioned int
	var errs error
	for _, row := range rows {
		row := row
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			now := s.now()
			patch := models.CheckoutSession{
				Status:         enums.SessionStatusAbandoned,
				RecoveryStatus: enums.RecoveryStatusPending,
				AbandonedAt:    &now,
			}
			affected, err := repo.UpdateGated(ctx, row.SessionID, row.TenantID, enums.SessionStatusActive, patch,
				[]string{"status", "recovery_status", "abandoned_at"})
			if err != nil {
				return err
			}
			if affected == 0 {
				return nil
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventSessionAbandoned,
				AggregateType: enums.AggregateCheckoutSession,
				AggregateID:   row.AggregateID(),
				Version:       1,
				OccurredAt:    now,
				Data: sessionEventPayload{
					SessionID:      row.SessionID,
					TenantID:       row.TenantID,
					Status:         enums.SessionStatusAbandoned,
					RecoveryStatus: enums.RecoveryStatusPending,
				},
			}
			if err := s.emitter.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}

			transitioned++
			s.counts.IncAbandoned()
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("abandon session %s/%s: %w", row.TenantID, row.SessionID, err))
		}
	}
	return transitioned, errs
}

// ExpireAbandoned closes out abandoned sessions whose recovery window ended
// before olderThan.
func (s *service) ExpireAbandoned(ctx context.Context, olderThan time.Time, batch int) (int, error) {
	rows, err := s.repo.FindStaleAbandoned(ctx, olderThan, batch)
	if err != nil {
		return 0, fmt.Errorf("find stale abandoned sessions: %w", err)
	}

	var transitioned int
	var errs error
	for _, row := range rows {
		row := row
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			now := s.now()
			patch := models.CheckoutSession{Status: enums.SessionStatusExpired}
			affected, err := repo.UpdateGated(ctx, row.SessionID, row.TenantID, enums.SessionStatusAbandoned, patch,
				[]string{"status"})
			if err != nil {
				return err
			}
			if affected == 0 {
				return nil
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventSessionExpired,
				AggregateType: enums.AggregateCheckoutSession,
				AggregateID:   row.AggregateID(),
				Version:       1,
				OccurredAt:    now,
				Data: sessionEventPayload{
					SessionID:      row.SessionID,
					TenantID:       row.TenantID,
					Status:         enums.SessionStatusExpired,
					RecoveryStatus: row.RecoveryStatus,
				},
			}
			if err := s.emitter.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}

			transitioned++
			s.counts.IncExpired()
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire session %s/%s: %w", row.TenantID, row.SessionID, err))
		}
	}
	return transitioned, errs
}

// fieldPatch is the shared optional-field set of start and complete payloads.
type fieldPatch struct {
	CartID         *string
	CustomerID     *string
	CustomerEmail  *string
	CustomerPhone  *string
	CustomerName   *string
	Region         *string
	TotalEstimated *decimal.Decimal
}

func emptyIfNilItems(items types.ItemsSnapshot) types.ItemsSnapshot {
	if items == nil {
		return types.ItemsSnapshot{}
	}
	return items
}

func emptyIfNilUTM(utm types.UTMParams) types.UTMParams {
	if utm == nil {
		return types.UTMParams{}
	}
	return utm
}

func emptyIfNilMetadata(metadata types.Metadata) types.Metadata {
	if metadata == nil {
		return types.Metadata{}
	}
	return metadata
}

func requireNaturalKey(sessionID, tenantID string) (string, string, error) {
	sessionID = strings.TrimSpace(sessionID)
	tenantID = strings.TrimSpace(tenantID)
	if sessionID == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	if tenantID == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "tenant_id is required")
	}
	return sessionID, tenantID, nil
}

// normalizeContact rewrites the pointed-at values in place so every caller
// stores canonical contact data regardless of what the client sent.
func normalizeContact(email, phone *string) {
	if email != nil {
		*email = normalize.Email(*email)
	}
	if phone != nil {
		*phone = normalize.Phone(*phone)
	}
}

func applyFields(record *models.CheckoutSession, patch fieldPatch) {
	if patch.CartID != nil {
		record.CartID = patch.CartID
	}
	if patch.CustomerID != nil {
		record.CustomerID = patch.CustomerID
	}
	if patch.CustomerEmail != nil {
		record.CustomerEmail = patch.CustomerEmail
	}
	if patch.CustomerPhone != nil {
		record.CustomerPhone = patch.CustomerPhone
	}
	if patch.CustomerName != nil {
		record.CustomerName = patch.CustomerName
	}
	if patch.Region != nil {
		record.Region = patch.Region
	}
	if patch.TotalEstimated != nil {
		record.TotalEstimated = patch.TotalEstimated
	}
}
