package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
)

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type recordingObserver struct {
	outcomes map[string]error
}

func (r *recordingObserver) ObserveJob(job string, _ time.Duration, err error) {
	if r.outcomes == nil {
		r.outcomes = map[string]error{}
	}
	r.outcomes[job] = err
}

type busyLock struct{}

func (busyLock) Acquire(context.Context) (bool, error) { return false, nil }
func (busyLock) Release(context.Context) error         { return nil }

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &LocalLock{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	require.Error(t, err)

	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &LocalLock{}})
	require.NoError(t, err)
	require.Equal(t, defaultInterval, svc.interval)
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	failing := &testJob{name: "fail", err: errors.New("boom")}
	observer := &recordingObserver{}
	lock := &LocalLock{}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(failing, ok),
		Lock:     lock,
		Metrics:  observer,
	})
	require.NoError(t, err)

	err = svc.runCycle(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "fail: boom")
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, failing.runs)
	require.NoError(t, observer.outcomes["success"])
	require.Error(t, observer.outcomes["fail"])

	locked, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, locked, "lock should be released after the cycle")
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "never"}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     busyLock{},
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	require.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "tick"}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &LocalLock{},
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
	require.Equal(t, 1, job.runs)
}
