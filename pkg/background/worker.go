package background

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is a unit of periodic work
type Task interface {
	// TTL is the interval between runs
	TTL() time.Duration

	// Do runs the task once
	Do(context.Context) error

	// Info names the task for logs
	Info() string
}

// Worker runs a fixed set of tasks on their own tickers until ctx is cancelled
type Worker struct {
	log   *zap.Logger
	tasks []Task
}

// New runs every task once synchronously, then schedules them in the background.
// An error or panic during that first run is returned and nothing is scheduled.
func New(ctx context.Context, log *zap.Logger, tasks []Task) (*Worker, error) {
	if log == nil {
		log = zap.NewNop()
	}

	worker := &Worker{
		log:   log,
		tasks: tasks,
	}
	if len(tasks) == 0 {
		return worker, nil
	}

	initGroup, initCtx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		initGroup.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := debug.Stack()
					err = fmt.Errorf("init panic: %v\n%s", r, stack)
					log.Error("❌ task panic during init",
						zap.String("task", task.Info()),
						zap.Any("recover", r),
						zap.ByteString("stack", stack),
					)
				}
			}()
			log.Info("🔄 initializing task", zap.String("task", task.Info()))
			return task.Do(initCtx)
		})
	}

	if err := initGroup.Wait(); err != nil {
		return nil, fmt.Errorf("failed to initialize tasks: %w", err)
	}

	for _, task := range tasks {
		go worker.runBackgroundTask(ctx, task)
	}

	return worker, nil
}

func (w *Worker) runBackgroundTask(ctx context.Context, task Task) {
	ttl := task.TTL()
	if ttl <= 0 {
		w.log.Warn("⚠️ invalid TTL, skipping periodic execution",
			zap.String("task", task.Info()),
			zap.Duration("ttl", ttl),
		)
		return
	}
	w.log.Info("⏱️ starting periodic execution",
		zap.String("task", task.Info()),
		zap.Duration("ttl", ttl),
	)

	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("🛑 stopping task (context cancelled)", zap.String("task", task.Info()))
			return
		case <-ticker.C:
			w.executeTaskSafely(ctx, task)
		}
	}
}

func (w *Worker) executeTaskSafely(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("❌ background task panic",
				zap.String("task", task.Info()),
				zap.Any("recover", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if err := task.Do(ctx); err != nil {
		w.log.Error("❌ background task failed",
			zap.String("task", task.Info()),
			zap.Error(err),
		)
	}
}
