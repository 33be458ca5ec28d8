package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task is a named cycle run on an interval
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives recurring cycles. Each task runs once at startup,
// then on its interval; runs of the same task never overlap.
type Scheduler struct {
	tasks []Task
	log   *zap.Logger
}

// NewScheduler creates a scheduler
func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{log: log}
}

// Add registers a task. Tasks with a non-positive interval are ignored.
func (s *Scheduler) Add(task Task) {
	if task.Interval <= 0 {
		s.log.Warn("task has no interval, skipping", zap.String("task", task.Name))
		return
	}
	s.tasks = append(s.tasks, task)
}

// Start runs all tasks until the context is cancelled. Blocks.
func (s *Scheduler) Start(ctx context.Context) {
	done := make(chan struct{}, len(s.tasks))
	for _, task := range s.tasks {
		go func(task Task) {
			defer func() { done <- struct{}{} }()
			s.loop(ctx, task)
		}(task)
	}
	for range s.tasks {
		<-done
	}
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.runOnce(ctx, task)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := task.Run(ctx); err != nil {
		s.log.Error("cycle failed",
			zap.String("task", task.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.log.Info("cycle complete",
		zap.String("task", task.Name),
		zap.Duration("elapsed", time.Since(start)),
	)
}
