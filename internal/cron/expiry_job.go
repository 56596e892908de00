package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/vendaflow/checkout-tracker/pkg/logger"
)

const defaultExpireAfter = 168 * time.Hour

// ExpiryJobParams configure the session expiry sweep.
type ExpiryJobParams struct {
	Logger    *logger.Logger
	Sessions  sessionReclassifier
	Retention time.Duration
	BatchSize int
}

// NewExpiryJob builds the job that closes out abandoned sessions whose
// recovery window has passed.
func NewExpiryJob(params ExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("sessions service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultExpireAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &expiryJob{
		logg:      params.Logger,
		sessions:  params.Sessions,
		retention: retention,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type expiryJob struct {
	logg      *logger.Logger
	sessions  sessionReclassifier
	retention time.Duration
	batch     int
	now       func() time.Time
}

func (j *expiryJob) Name() string { return "session-expiry" }

func (j *expiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	count, err := j.sessions.ExpireAbandoned(ctx, cutoff, j.batch)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"count":  count,
		"cutoff": cutoff,
	})
	if err != nil {
		return fmt.Errorf("expire abandoned sessions: %w", err)
	}
	j.logg.Info(logCtx, "expiry sweep complete")
	return nil
}
