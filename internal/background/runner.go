// Package background runs the daemon's upkeep loops: the history recorder,
// the retention pruner, and the idle-session reaper.
package background

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Task is one long-running upkeep loop. Run is expected to return nil when
// it stops because ctx was cancelled.
type Task interface {
	// Name identifies the task in logs.
	Name() string
	// Run blocks until ctx is cancelled or the task hits an
	// unrecoverable error.
	Run(ctx context.Context) error
}

// Runner drives a set of tasks as one unit: all start together, the first
// failure cancels the rest, and Run returns only once every task has
// stopped.
type Runner struct {
	tasks []Task
}

// NewRunner creates a Runner over the given tasks.
func NewRunner(tasks ...Task) *Runner {
	return &Runner{tasks: tasks}
}

// Run blocks until all tasks finish and returns the first task error, if
// any. A clean shutdown returns nil.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range r.tasks {
		g.Go(func() error {
			slog.Info("background task started", "task", task.Name())
			err := task.Run(ctx)
			if err != nil {
				slog.Error("background task failed", "task", task.Name(), "error", err)
			} else {
				slog.Info("background task stopped", "task", task.Name())
			}
			return err
		})
	}
	return g.Wait()
}
