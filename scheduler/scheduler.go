// Package scheduler runs the host's periodic background work, such as
// autosaving.
package scheduler

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownTask is returned by Trigger for a name that was never added.
var ErrUnknownTask = errors.New("scheduler: unknown task")

// TaskFn is one run of a scheduled task. ctx is cancelled when the task is
// removed or the scheduler stops.
type TaskFn func(ctx context.Context) error

// Scheduler runs named tasks on fixed intervals. A task never overlaps
// itself: a tick that arrives while the previous run is still going is
// dropped.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.Logger
}

type task struct {
	name   string
	fn     TaskFn
	run    sync.Mutex // held while fn runs
	cancel context.CancelFunc
}

// New creates a Scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:  make(map[string]*task),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// AddTicker registers fn to run every interval. A task with the same name
// is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if old, ok := s.tasks[name]; ok {
		old.cancel()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	t := &task{name: name, fn: fn, cancel: cancel}
	s.tasks[name] = t

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if t.run.TryLock() {
					s.exec(ctx, t)
					t.run.Unlock()
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) exec(ctx context.Context, t *task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked", zap.String("task", t.name), zap.Any("recover", r))
		}
	}()
	if err := t.fn(ctx); err != nil {
		s.logger.Warn("scheduler task failed", zap.String("task", t.name), zap.Error(err))
	}
}

// Trigger runs the named task now, on the caller's goroutine, waiting for a
// run already in progress to finish first.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownTask
	}
	t.run.Lock()
	defer t.run.Unlock()
	return t.fn(ctx)
}

// Remove stops the named task. Removing an unknown name is a no-op.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		t.cancel()
		delete(s.tasks, name)
	}
}

// Stop cancels every task and waits for runs in progress to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.tasks = make(map[string]*task)
	s.mu.Unlock()
	s.wg.Wait()
}

// Tasks returns the registered task names, sorted.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
