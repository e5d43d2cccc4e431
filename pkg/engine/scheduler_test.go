package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quotesync/pkg/core"
	"github.com/aretw0/quotesync/pkg/engine"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (c *countingReconciler) Reconcile(ctx context.Context) (bool, error) {
	c.calls.Add(1)
	return c.err == nil, c.err
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestNewScheduler_InvalidCron(t *testing.T) {
	_, err := engine.NewScheduler(&countingReconciler{}, engine.SchedulerConfig{Cron: "every now and then"})
	assert.Error(t, err)
}

func TestNewScheduler_DefaultInterval(t *testing.T) {
	s, err := engine.NewScheduler(&countingReconciler{}, engine.SchedulerConfig{})
	require.NoError(t, err)
	assert.Equal(t, "@every 5s", s.State().Metadata["schedule"])
}

func TestScheduler_TicksReconcile(t *testing.T) {
	r := &countingReconciler{}
	var updates atomic.Int32

	s, err := engine.NewScheduler(r, engine.SchedulerConfig{
		Interval: time.Second,
		OnUpdate: func() { updates.Add(1) },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx), "double start is rejected")

	waitFor(t, 4*time.Second, func() bool { return r.calls.Load() >= 1 })
	assert.GreaterOrEqual(t, s.Ticks(), 1)
	assert.GreaterOrEqual(t, updates.Load(), int32(1))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))

	after := r.calls.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, r.calls.Load(), "no ticks after stop")
}

func TestScheduler_FailuresDoNotStopTicking(t *testing.T) {
	r := &countingReconciler{err: core.ErrNetwork}
	var updates atomic.Int32

	s, err := engine.NewScheduler(r, engine.SchedulerConfig{
		Cron:     "@every 1s",
		OnUpdate: func() { updates.Add(1) },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	waitFor(t, 5*time.Second, func() bool { return r.calls.Load() >= 2 })
	assert.Equal(t, int32(0), updates.Load())
	assert.Equal(t, worker.StatusRunning, s.State().Status)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
}

func TestSupervisorSpec_RunsScheduler(t *testing.T) {
	r := &countingReconciler{}

	sup := supervisor.New("test-sync", supervisor.StrategyOneForOne,
		engine.SupervisorSpec(r, engine.SchedulerConfig{Interval: time.Second}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sup.Start(ctx))

	waitFor(t, 4*time.Second, func() bool { return r.calls.Load() >= 1 })

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, sup.Stop(stopCtx))
}
