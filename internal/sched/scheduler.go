// Package sched drives one scheduling run: it levels the task set, executes
// each level's tasks concurrently under a bounded limit, applies the per-task
// execution policy against the backend registry, and aggregates everything
// into a RunReport.
package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/tandemgrid/internal/backend"
	"github.com/vk/tandemgrid/internal/ctxlog"
	"github.com/vk/tandemgrid/internal/level"
	"github.com/vk/tandemgrid/internal/policy"
	"github.com/vk/tandemgrid/internal/report"
	"github.com/vk/tandemgrid/internal/task"
)

// State names the scheduler's position in its run lifecycle. It exists for
// logging and tests; transitions are internal to Run.
type State int

const (
	Idle State = iota
	Leveling
	Executing
	Draining
	Done
)

// String returns the lifecycle state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Leveling:
		return "leveling"
	case Executing:
		return "executing"
	case Draining:
		return "draining"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Scheduler executes task graphs against a fixed backend registry. A single
// Scheduler may serve sequential runs; each Run call is independent.
type Scheduler struct {
	registry *backend.Registry
	opts     Options
}

// New creates a Scheduler over the given registry. The registry must not be
// mutated while a run is in flight.
func New(registry *backend.Registry, opts Options) *Scheduler {
	return &Scheduler{
		registry: registry,
		opts:     opts.withDefaults(),
	}
}

// Run levels the tasks and executes every level in order, returning the
// aggregate report. Individual task failures never abort the run; the only
// errors are a malformed task list (pre-flight) or a policy configuration
// error. Cancelling ctx stops launching new tasks, lets in-flight ones finish
// or time out, and returns the partial report together with ctx.Err().
func (s *Scheduler) Run(ctx context.Context, tasks []task.Task) (*report.RunReport, error) {
	logger := ctxlog.FromContext(ctx)
	started := time.Now()
	rep := report.NewRunReport(len(tasks))

	logger.Debug("Scheduler state change.", "state", Idle.String(), "tasks", len(tasks))
	logger.Debug("Scheduler state change.", "state", Leveling.String())
	levels, err := level.Level(ctx, tasks)
	if err != nil {
		return nil, fmt.Errorf("leveling failed: %w", err)
	}
	if len(levels) == 0 {
		rep.Finalize(time.Since(started))
		logger.Debug("Scheduler state change.", "state", Done.String())
		return rep, nil
	}

	// Resolve every task's policy up front so a configuration error surfaces
	// before anything runs.
	policies := make(map[string]policy.Policy, len(tasks))
	for _, t := range tasks {
		p, err := policy.For(t.Policy, s.opts.DefaultPolicy, s.opts.Equal)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.ID, err)
		}
		policies[t.ID] = p
	}

	cancelled := false
	for i, lvl := range levels {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		logger.Debug("Scheduler state change.", "state", Executing.String(), "level", i, "tasks", len(lvl))
		if s.runLevel(ctx, lvl, policies, rep) {
			cancelled = true
			break
		}
		logger.Debug("Level fully resolved.", "level", i)
	}

	logger.Debug("Scheduler state change.", "state", Draining.String())
	rep.Finalize(time.Since(started))
	logger.Info("Run finished.",
		"state", Done.String(),
		"succeeded", rep.Succeeded,
		"failed", rep.Failed,
		"policy_mismatches", rep.PolicyMismatches,
		"wall_clock", rep.WallClock,
	)

	if cancelled {
		return rep, ctx.Err()
	}
	return rep, nil
}

// runLevel executes one level's tasks under the concurrency limit and folds
// their results into the report. It reports whether the run was cancelled
// while the level was in flight. Task goroutines only ever send results; the
// coordinator (this goroutine) is the sole mutator of the report.
func (s *Scheduler) runLevel(ctx context.Context, lvl []task.Task, policies map[string]policy.Policy, rep *report.RunReport) (cancelled bool) {
	limit := s.opts.MaxConcurrencyPerLevel
	if len(lvl) < limit {
		limit = len(lvl)
	}
	sem := make(chan struct{}, limit)
	results := make(chan report.ExecutionResult, len(lvl))

	launched := 0
	for _, t := range lvl {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		launched++
		go func(t task.Task) {
			sem <- struct{}{}
			defer func() { <-sem }()

			// In-flight tasks ride out a run cancellation: they finish or
			// hit their own timeout, they are not killed mid-execution.
			taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PerTaskTimeout)
			defer cancel()

			results <- policies[t.ID].Execute(taskCtx, t, s.registry)
		}(t)
	}

	// The level resolves only when every launched task has produced exactly
	// one result; failures and mismatches count as resolved.
	for range launched {
		rep.Record(<-results)
	}
	return cancelled
}
