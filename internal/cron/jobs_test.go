package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/vendaflow/checkout-tracker/pkg/logger"
)

type fakeReclassifier struct {
	markFn   func(ctx context.Context, olderThan time.Time, batch int) (int, error)
	expireFn func(ctx context.Context, olderThan time.Time, batch int) (int, error)
}

func (f *fakeReclassifier) MarkAbandoned(ctx context.Context, olderThan time.Time, batch int) (int, error) {
	if f.markFn != nil {
		return f.markFn(ctx, olderThan, batch)
	}
	return 0, nil
}

func (f *fakeReclassifier) ExpireAbandoned(ctx context.Context, olderThan time.Time, batch int) (int, error) {
	if f.expireFn != nil {
		return f.expireFn(ctx, olderThan, batch)
	}
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestAbandonmentJob_UsesThresholdCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	var gotCutoff time.Time
	var gotBatch int
	sessions := &fakeReclassifier{
		markFn: func(ctx context.Context, olderThan time.Time, batch int) (int, error) {
			gotCutoff = olderThan
			gotBatch = batch
			return 3, nil
		},
	}

	job, err := NewAbandonmentJob(AbandonmentJobParams{
		Logger:    testLogger(),
		Sessions:  sessions,
		Threshold: 45 * time.Minute,
		BatchSize: 50,
	})
	if err != nil {
		t.Fatalf("NewAbandonmentJob: %v", err)
	}
	job.(*abandonmentJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-45 * time.Minute); !gotCutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, gotCutoff)
	}
	if gotBatch != 50 {
		t.Fatalf("expected batch 50, got %d", gotBatch)
	}
}

func TestAbandonmentJob_Defaults(t *testing.T) {
	var gotBatch int
	var gotCutoff time.Time
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	sessions := &fakeReclassifier{
		markFn: func(ctx context.Context, olderThan time.Time, batch int) (int, error) {
			gotCutoff = olderThan
			gotBatch = batch
			return 0, nil
		},
	}

	job, err := NewAbandonmentJob(AbandonmentJobParams{Logger: testLogger(), Sessions: sessions})
	if err != nil {
		t.Fatalf("NewAbandonmentJob: %v", err)
	}
	job.(*abandonmentJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-defaultAbandonAfter); !gotCutoff.Equal(want) {
		t.Fatalf("expected default cutoff %v, got %v", want, gotCutoff)
	}
	if gotBatch != defaultBatchSize {
		t.Fatalf("expected default batch %d, got %d", defaultBatchSize, gotBatch)
	}
}

func TestAbandonmentJob_PropagatesErrors(t *testing.T) {
	sessions := &fakeReclassifier{
		markFn: func(ctx context.Context, olderThan time.Time, batch int) (int, error) {
			return 1, errors.New("boom")
		},
	}
	job, err := NewAbandonmentJob(AbandonmentJobParams{Logger: testLogger(), Sessions: sessions})
	if err != nil {
		t.Fatalf("NewAbandonmentJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestExpiryJob_UsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	var gotCutoff time.Time
	sessions := &fakeReclassifier{
		expireFn: func(ctx context.Context, olderThan time.Time, batch int) (int, error) {
			gotCutoff = olderThan
			return 1, nil
		},
	}

	job, err := NewExpiryJob(ExpiryJobParams{
		Logger:    testLogger(),
		Sessions:  sessions,
		Retention: 72 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewExpiryJob: %v", err)
	}
	job.(*expiryJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-72 * time.Hour); !gotCutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, gotCutoff)
	}
}

func TestJobConstructors_RequireDependencies(t *testing.T) {
	if _, err := NewAbandonmentJob(AbandonmentJobParams{Sessions: &fakeReclassifier{}}); err == nil {
		t.Fatal("expected error for missing logger")
	}
	if _, err := NewAbandonmentJob(AbandonmentJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error for missing sessions service")
	}
	if _, err := NewExpiryJob(ExpiryJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error for missing sessions service")
	}
}
