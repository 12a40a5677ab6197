package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubDeleter struct {
	gotNow time.Time
	n      int64
	err    error
}

func (d *stubDeleter) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	d.gotNow = now
	return d.n, d.err
}

func TestSweepUsesClock(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	d := &stubDeleter{n: 4}
	j := NewRefreshSessionSweepJob(d, func() time.Time { return now }, nil)

	require.Equal(t, "refresh_session_sweep", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now, d.gotNow)
}

func TestSweepPropagatesError(t *testing.T) {
	j := NewRefreshSessionSweepJob(&stubDeleter{err: errors.New("db down")}, nil, nil)
	require.Error(t, j.Run(context.Background()))
}
