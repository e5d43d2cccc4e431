package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/robfig/cron/v3"
)

// DefaultInterval is the reconciliation period when none is configured.
const DefaultInterval = 5 * time.Second

// Reconciler is what the scheduler drives.
type Reconciler interface {
	Reconcile(ctx context.Context) (bool, error)
}

// SchedulerConfig selects when reconciliation runs.
// Cron, if set, takes precedence over Interval. Cron accepts standard
// five-field expressions and descriptors such as "@every 30s".
// Intervals below one second are rounded up by the cron library.
type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
	Logger   *slog.Logger
	// OnUpdate is called after a tick that changed local state.
	OnUpdate func()
}

// Scheduler is a worker that runs reconciliation on a repeating schedule.
type Scheduler struct {
	*worker.BaseWorker
	target   Reconciler
	config   SchedulerConfig
	schedule cron.Schedule
	spec     string
	cron     *cron.Cron
	cancel   context.CancelFunc

	mu       sync.Mutex
	ticks    int
	lastTick time.Time
}

// NewScheduler validates the schedule and builds an unstarted scheduler.
func NewScheduler(target Reconciler, config SchedulerConfig) (*Scheduler, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Scheduler{
		BaseWorker: worker.NewBaseWorker("reconcile-scheduler"),
		target:     target,
		config:     config,
	}

	if config.Cron != "" {
		schedule, err := cron.ParseStandard(config.Cron)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", config.Cron, err)
		}
		s.schedule = schedule
		s.spec = config.Cron
	} else {
		interval := config.Interval
		if interval <= 0 {
			interval = DefaultInterval
		}
		s.schedule = cron.Every(interval)
		s.spec = "@every " + interval.String()
	}
	return s, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := s.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("scheduler already started (status: %s)", status)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Overlap is already prevented by the engine; skipping here avoids piling goroutines.
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.tick(runCtx) }))
	s.cron.Start()

	s.config.Logger.Info("reconcile scheduler started", "schedule", s.spec)
	s.SetStatus(worker.StatusRunning)
	return s.StartFunc(runCtx, s.run)
}

func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.StopRequested = true
		s.cancel()
	}

	return s.BaseWorker.Stop(ctx)
}

func (s *Scheduler) State() worker.State {
	s.mu.Lock()
	ticks, lastTick := s.ticks, s.lastTick
	s.mu.Unlock()

	return s.ExportState(func(st *worker.State) {
		st.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"schedule":          s.spec,
			"ticks":             strconv.Itoa(ticks),
		}
		if !lastTick.IsZero() {
			st.Metadata["last_tick"] = lastTick.Format(time.RFC3339)
		}
	})
}

// Ticks returns how many scheduled runs have fired.
func (s *Scheduler) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *Scheduler) run(ctx context.Context) error {
	<-ctx.Done()

	// Wait for an in-flight reconciliation, bounded so shutdown cannot hang.
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(30 * time.Second):
		s.config.Logger.Warn("reconcile still running at shutdown")
	}
	s.config.Logger.Info("reconcile scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	s.ticks++
	s.lastTick = time.Now()
	s.mu.Unlock()

	updated, err := s.target.Reconcile(ctx)
	if err != nil {
		// The next tick retries; nothing else to do.
		s.config.Logger.Warn("scheduled reconcile failed", "error", err)
		return
	}
	if updated && s.config.OnUpdate != nil {
		s.config.OnUpdate()
	}
}

// SupervisorSpec describes the scheduler for a lifecycle supervisor that
// restarts it if it fails.
func SupervisorSpec(target Reconciler, config SchedulerConfig) supervisor.Spec {
	return supervisor.Spec{
		Name: "reconcile-scheduler",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			s, err := NewScheduler(target, config)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     5,
			MaxDuration:     10 * time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}
}
