// Package jobs runs periodic background tasks alongside the HTTP server.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Task is one unit of periodic work.
type Task func(context.Context) error

// SchedulerConfig configures retry behaviour for failing runs.
type SchedulerConfig struct {
	MaxRetries uint64
	RetryDelay time.Duration
	Logger     *zap.Logger
}

type entry struct {
	name     string
	interval time.Duration
	task     Task
}

// Scheduler runs each registered task on its own ticker until stopped.
type Scheduler struct {
	maxRetries uint64
	retryDelay time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	entries []entry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler builds a scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Scheduler{maxRetries: cfg.MaxRetries, retryDelay: cfg.RetryDelay, logger: cfg.Logger}
}

// Every registers task to run at interval. Non-positive intervals are ignored.
// Registration after Start has no effect.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) {
	if interval <= 0 || task == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.entries = append(s.entries, entry{name: name, interval: interval, task: task})
}

// Start launches one goroutine per task. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
	s.started = true
	s.logger.Info("scheduler started", zap.Int("tasks", len(s.entries)))
}

// Stop cancels every task and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, e)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, e entry) {
	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), s.maxRetries), ctx)
	err := backoff.Retry(func() error {
		attempt++
		return e.task(ctx)
	}, policy)
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("task failed", zap.String("task", e.name), zap.Int("attempts", attempt), zap.Error(err))
	}
}
