package task

import (
	"context"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/lifecycle"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	staleSweepBatch   = 200
	staleSweepTimeout = 2 * time.Minute
)

type StaleCallLister interface {
	ListStaleCalls(ctx context.Context, before time.Time, limit int) ([]models.CallRecord, error)
}

// StaleFinalizer closes one stale call. It must re-check the record under
// its own lock, since the list is read without one.
type StaleFinalizer interface {
	FinalizeStale(ctx context.Context, callID string, before time.Time) (lifecycle.Ack, error)
}

// StartStaleSweeper starts the stale call cron job. The caller stops the
// returned cron on shutdown.
func StartStaleSweeper(schedule string, after time.Duration, lister StaleCallLister, finalizer StaleFinalizer, m *metrics.Metrics) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), staleSweepTimeout)
		defer cancel()

		swept, err := SweepStaleCalls(ctx, lister, finalizer, after, time.Now())
		m.RecordStaleSwept(swept)
		if err != nil {
			logger.Error("Stale call sweeper failed", zap.Error(err))
			return
		}
		if swept > 0 {
			logger.Info("Stale call sweeper finalized calls", zap.Int("count", swept))
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logger.Info("Stale call sweeper started",
		zap.String("schedule", schedule),
		zap.Duration("after", after))
	return c, nil
}

// SweepStaleCalls finalizes calls untouched for longer than after as FAILED
// with endedReason call-stale-timeout. Calls that finished or got new events
// since the list was read are skipped. A real call-ended arriving later still
// overwrites the sweep.
func SweepStaleCalls(ctx context.Context, lister StaleCallLister, finalizer StaleFinalizer, after time.Duration, now time.Time) (int, error) {
	before := now.Add(-after)
	stale, err := lister.ListStaleCalls(ctx, before, staleSweepBatch)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, rec := range stale {
		ack, err := finalizer.FinalizeStale(ctx, rec.ExternalCallID, before)
		if err != nil {
			logger.Warn("Failed to finalize stale call",
				zap.String("callId", rec.ExternalCallID),
				zap.Error(err))
			continue
		}
		if ack.Applied {
			swept++
		}
	}
	return swept, nil
}
