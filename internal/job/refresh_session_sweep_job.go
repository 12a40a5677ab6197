package job

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RefreshSessionSweepJob deletes refresh sessions past their expiry.
type RefreshSessionSweepJob struct {
	sessions ExpiredSessionDeleter
	now      func() time.Time
	logger   *zap.Logger
}

func NewRefreshSessionSweepJob(sessions ExpiredSessionDeleter, now func() time.Time, logger *zap.Logger) *RefreshSessionSweepJob {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshSessionSweepJob{sessions: sessions, now: now, logger: logger}
}

func (j *RefreshSessionSweepJob) Name() string {
	return "refresh_session_sweep"
}

func (j *RefreshSessionSweepJob) Run(ctx context.Context) error {
	if j.sessions == nil {
		return nil
	}
	n, err := j.sessions.DeleteExpired(ctx, j.now())
	if err != nil {
		return err
	}
	if n > 0 {
		j.logger.Info("expired refresh sessions removed", zap.Int64("count", n))
	}
	return nil
}
