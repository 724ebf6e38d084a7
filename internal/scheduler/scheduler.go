// Package scheduler owns the recurring jobs: periodic discovery runs and the
// daily deadline check. Each job has a single-flight guard so a slow run and
// its successor never overlap, and a manual trigger goes through the same
// guard as the timer.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// ErrAlreadyRunning is returned when a trigger lands while the same job is
// still in flight. Callers treat it as a no-op, not a failure.
var ErrAlreadyRunning = errors.New("job already running")

// ErrSuspended is returned for triggers after the scheduler shut itself down
// on store loss.
var ErrSuspended = errors.New("scheduler suspended")

// Runner executes one discovery pass.
type Runner interface {
	Run(ctx context.Context) (engine.RunSummary, error)
}

// Config carries the scheduler's tunables.
type Config struct {
	DiscoveryInterval time.Duration
	// DeadlineCheckTime is a local wall-clock time in "15:04" form.
	DeadlineCheckTime string
	ReminderWindow    time.Duration
}

// Scheduler drives the discovery runner and deadline sweeps on their timers.
type Scheduler struct {
	runner Runner
	store  engine.Store
	clock  engine.Clock
	cfg    Config
	logger *zap.Logger

	discoveryBusy atomic.Bool
	deadlineBusy  atomic.Bool
	suspended     atomic.Bool

	mu      sync.Mutex
	lastRun *engine.RunSummary

	stop   context.CancelFunc
	done   chan struct{}
	stopMu sync.Mutex
}

func New(runner Runner, store engine.Store, clock engine.Clock, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.DiscoveryInterval <= 0 {
		cfg.DiscoveryInterval = 6 * time.Hour
	}
	if cfg.DeadlineCheckTime == "" {
		cfg.DeadlineCheckTime = "08:00"
	}
	if _, err := time.Parse("15:04", cfg.DeadlineCheckTime); err != nil {
		return nil, fmt.Errorf("invalid deadline check time %q: %w", cfg.DeadlineCheckTime, err)
	}
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = 3 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner: runner,
		store:  store,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start launches both job loops. It returns immediately; Stop tears the loops
// down and waits for in-flight jobs to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.done != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.discoveryLoop(loopCtx)
	}()
	go func() {
		defer wg.Done()
		s.deadlineLoop(loopCtx)
	}()
	go func() {
		wg.Wait()
		close(s.done)
	}()
}

// Stop cancels the loops and blocks until they exit.
func (s *Scheduler) Stop() {
	s.stopMu.Lock()
	stop, done := s.stop, s.done
	s.stopMu.Unlock()
	if stop == nil {
		return
	}
	stop()
	<-done
}

func (s *Scheduler) discoveryLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.DiscoveryInterval)
	defer ticker.Stop()

	// First pass runs at startup rather than waiting a full interval.
	s.runDiscovery(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.suspended.Load() {
				return
			}
			s.runDiscovery(ctx)
		}
	}
}

func (s *Scheduler) deadlineLoop(ctx context.Context) {
	for {
		wait := untilNext(s.clock.Now(), s.cfg.DeadlineCheckTime)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			if s.suspended.Load() {
				return
			}
			s.runDeadlineCheck(ctx)
		}
	}
}

// untilNext returns the duration until the next local occurrence of the
// "15:04" wall-clock time at.
func untilNext(now time.Time, at string) time.Duration {
	target, _ := time.Parse("15:04", at)
	next := time.Date(now.Year(), now.Month(), now.Day(),
		target.Hour(), target.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// TriggerDiscovery runs a discovery pass on demand through the same
// single-flight guard as the timer.
func (s *Scheduler) TriggerDiscovery(ctx context.Context) (engine.RunSummary, error) {
	if s.suspended.Load() {
		return engine.RunSummary{}, ErrSuspended
	}
	if !s.discoveryBusy.CompareAndSwap(false, true) {
		return engine.RunSummary{}, ErrAlreadyRunning
	}
	defer s.discoveryBusy.Store(false)
	return s.discover(ctx)
}

// runDiscovery is the timer-driven entry. An overlap is logged and skipped.
func (s *Scheduler) runDiscovery(ctx context.Context) {
	if !s.discoveryBusy.CompareAndSwap(false, true) {
		s.logger.Info("discovery already running, skipping scheduled pass")
		return
	}
	defer s.discoveryBusy.Store(false)
	if _, err := s.discover(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduled discovery failed", zap.Error(err))
	}
}

func (s *Scheduler) discover(ctx context.Context) (engine.RunSummary, error) {
	summary, err := s.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrStoreUnavailable) {
			s.suspend(err)
		}
		return summary, err
	}
	s.mu.Lock()
	s.lastRun = &summary
	s.mu.Unlock()
	return summary, nil
}

// TriggerDeadlineCheck runs the deadline sweep on demand.
func (s *Scheduler) TriggerDeadlineCheck(ctx context.Context) error {
	if s.suspended.Load() {
		return ErrSuspended
	}
	if !s.deadlineBusy.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.deadlineBusy.Store(false)
	return s.sweepDeadlines(ctx)
}

func (s *Scheduler) runDeadlineCheck(ctx context.Context) {
	if !s.deadlineBusy.CompareAndSwap(false, true) {
		s.logger.Info("deadline check already running, skipping scheduled pass")
		return
	}
	defer s.deadlineBusy.Store(false)
	if err := s.sweepDeadlines(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("deadline check failed", zap.Error(err))
	}
}

// sweepDeadlines closes open records whose due date has passed and logs a
// reminder for everything closing inside the reminder window.
func (s *Scheduler) sweepDeadlines(ctx context.Context) error {
	now := s.clock.Now()

	open, err := s.store.List(ctx, engine.ListFilter{Status: engine.StatusOpen})
	if err != nil {
		if errors.Is(err, engine.ErrStoreUnavailable) {
			s.suspend(err)
		}
		return fmt.Errorf("list open opportunities: %w", err)
	}

	closed := engine.StatusClosed
	var expired int
	for _, rec := range open {
		if rec.DueDate == nil || rec.DueDate.After(now) {
			continue
		}
		if err := s.store.Update(ctx, rec.ID, engine.UpdateFields{Status: &closed}); err != nil {
			s.logger.Warn("failed to close expired opportunity",
				zap.String("id", rec.ID),
				zap.Error(err))
			continue
		}
		expired++
	}

	dueSoon, err := s.store.DueWithin(ctx, s.cfg.ReminderWindow, now)
	if err != nil {
		if errors.Is(err, engine.ErrStoreUnavailable) {
			s.suspend(err)
		}
		return fmt.Errorf("list closing opportunities: %w", err)
	}
	for _, rec := range dueSoon {
		s.logger.Info("deadline approaching",
			zap.String("id", rec.ID),
			zap.String("title", rec.Title),
			zap.String("agency", rec.Agency),
			zap.Timep("due_date", rec.DueDate),
			zap.String("tier", rec.RelevanceTier()))
	}

	s.logger.Info("deadline check complete",
		zap.Int("expired", expired),
		zap.Int("due_soon", len(dueSoon)))
	return nil
}

func (s *Scheduler) suspend(err error) {
	if s.suspended.CompareAndSwap(false, true) {
		s.logger.Error("store unavailable, suspending scheduler", zap.Error(err))
		s.stopMu.Lock()
		if s.stop != nil {
			s.stop()
		}
		s.stopMu.Unlock()
	}
}

// Status reports the scheduler's view for the status endpoint.
type Status struct {
	DiscoveryRunning bool               `json:"discovery_running"`
	DeadlineRunning  bool               `json:"deadline_check_running"`
	Suspended        bool               `json:"suspended"`
	LastRun          *engine.RunSummary `json:"last_run,omitempty"`
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	last := s.lastRun
	s.mu.Unlock()
	return Status{
		DiscoveryRunning: s.discoveryBusy.Load(),
		DeadlineRunning:  s.deadlineBusy.Load(),
		Suspended:        s.suspended.Load(),
		LastRun:          last,
	}
}
