package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jeramey/parci/internal/logging"
)

// Runner drains a task DAG: it repeatedly computes the ready set and runs
// it through a bounded worker pool until nothing more can run. Tasks
// downstream of a failure are left unrun.
type Runner struct {
	// Concurrency bounds how many task bodies run at once. Zero means 1.
	Concurrency int

	// Logger receives per-task progress. Nil means slog.Default().
	Logger *slog.Logger
}

// Run executes the DAG reachable from the starting tasks. It returns the
// joined errors of every failed task, plus an error naming tasks that
// never became ready (blocked behind a failure).
func (r *Runner) Run(ctx context.Context, start ...*Task) error {
	if len(start) == 0 {
		return errors.New("no starting tasks")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx = logging.WithRunID(ctx, uuid.NewString())

	all := Collect(start...)
	pool := newWorkerPool(r.Concurrency)

	var mu sync.Mutex
	var failures []error

	for {
		ready := Ready(all)
		if len(ready) == 0 {
			break
		}
		for _, t := range ready {
			t := t
			logger.InfoContext(ctx, "running task", slog.String("task", t.Name))
			err := pool.submit(ctx, func(ctx context.Context) {
				if err := t.run(ctx); err != nil {
					logger.ErrorContext(ctx, "task failed",
						slog.String("task", t.Name), slog.String("error", err.Error()))
					mu.Lock()
					failures = append(failures, err)
					mu.Unlock()
				}
			})
			if err != nil {
				pool.wait()
				return err
			}
		}
		pool.wait()
	}

	for _, t := range all {
		if !t.HasRun() {
			failures = append(failures, fmt.Errorf("task %s never ran: blocked by failed dependency", t.Name))
		}
	}
	return errors.Join(failures...)
}
