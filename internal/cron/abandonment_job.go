package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/vendaflow/checkout-tracker/pkg/logger"
)

const (
	defaultAbandonAfter = 30 * time.Minute
	defaultBatchSize    = 500
)

// sessionReclassifier is the slice of the sessions service the jobs consume.
type sessionReclassifier interface {
	MarkAbandoned(ctx context.Context, olderThan time.Time, batch int) (int, error)
	ExpireAbandoned(ctx context.Context, olderThan time.Time, batch int) (int, error)
}

// AbandonmentJobParams configure the session abandonment classifier.
type AbandonmentJobParams struct {
	Logger    *logger.Logger
	Sessions  sessionReclassifier
	Threshold time.Duration
	BatchSize int
}

// NewAbandonmentJob builds the job that reclassifies silent active sessions
// as abandoned. Abandonment is triggered by absence of heartbeats, never by
// an explicit cancel signal from the client.
func NewAbandonmentJob(params AbandonmentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("sessions service required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultAbandonAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &abandonmentJob{
		logg:      params.Logger,
		sessions:  params.Sessions,
		threshold: threshold,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type abandonmentJob struct {
	logg      *logger.Logger
	sessions  sessionReclassifier
	threshold time.Duration
	batch     int
	now       func() time.Time
}

func (j *abandonmentJob) Name() string { return "session-abandonment" }

func (j *abandonmentJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.threshold)
	count, err := j.sessions.MarkAbandoned(ctx, cutoff, j.batch)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"count":  count,
		"cutoff": cutoff,
	})
	if err != nil {
		return fmt.Errorf("mark abandoned sessions: %w", err)
	}
	j.logg.Info(logCtx, "abandonment sweep complete")
	return nil
}
