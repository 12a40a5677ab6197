package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestAddJobValidatesSpec(t *testing.T) {
	s := NewCronScheduler(nil)
	require.NoError(t, s.AddJob(&countingJob{}, "@every 1h"))
	require.NoError(t, s.AddJob(&countingJob{}, "0 3 * * *"))
	require.Error(t, s.AddJob(&countingJob{}, "every hour"))
}

func TestWrapRunsJob(t *testing.T) {
	s := NewCronScheduler(nil)
	job := &countingJob{err: errors.New("boom")}
	run := s.wrap(job, "@every 1h")
	run()
	run()
	require.Equal(t, int32(2), job.runs.Load())
}
