package app

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tandemgrid/internal/ctxlog"
	"github.com/vk/tandemgrid/internal/manifest"
	"github.com/vk/tandemgrid/internal/sched"
	"github.com/vk/tandemgrid/internal/task"
)

// Run executes the main application logic: load the grid, schedule it, and
// render the report. The returned error is non-nil only for load failures,
// configuration errors, or run cancellation; task failures are reported, not
// returned.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	grid, err := a.loader.Load(ctx, a.config.GridPath)
	if err != nil {
		return fmt.Errorf("failed to load grid: %w", err)
	}
	a.logger.Info("Grid loaded.", "tasks", len(grid.Tasks))

	opts, err := a.schedulerOptions(grid.Settings)
	if err != nil {
		return err
	}

	if len(grid.Tasks) == 0 {
		a.logger.Warn("No tasks found in grid, nothing to execute.")
		return nil
	}

	a.logger.Info("🚀 Starting run.", "tasks", len(grid.Tasks), "backends", a.registry.Len())
	scheduler := sched.New(a.registry, opts)
	rep, runErr := scheduler.Run(ctx, grid.Tasks)
	if rep != nil {
		if err := a.renderReport(rep); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	a.logger.Info("🏁 Run finished.")
	return nil
}

// schedulerOptions merges CLI-provided defaults with grid file settings; the
// grid file wins for every field it sets.
func (a *App) schedulerOptions(settings manifest.Settings) (sched.Options, error) {
	defaultPolicy, err := task.ParsePolicy(a.config.DefaultPolicy)
	if err != nil {
		return sched.Options{}, err
	}

	opts := sched.Options{
		MaxConcurrencyPerLevel: a.config.MaxConcurrency,
		PerTaskTimeout:         a.config.TaskTimeout,
		DefaultPolicy:          defaultPolicy,
		// Payloads flowing through the built-in backends are cty values, so
		// raw structural equality is the right consensus comparison here.
		Equal: func(x, y cty.Value) bool { return x.RawEquals(y) },
	}

	if settings.MaxConcurrency > 0 {
		opts.MaxConcurrencyPerLevel = settings.MaxConcurrency
	}
	if settings.TaskTimeout > 0 {
		opts.PerTaskTimeout = settings.TaskTimeout
	}
	if settings.DefaultPolicy != task.PolicyUnset {
		opts.DefaultPolicy = settings.DefaultPolicy
	}
	return opts, nil
}
