package policy

import (
	"context"
	"time"

	"github.com/vk/tandemgrid/internal/backend"
	"github.com/vk/tandemgrid/internal/ctxlog"
	"github.com/vk/tandemgrid/internal/report"
	"github.com/vk/tandemgrid/internal/task"
)

// Redundant races the hinted backend against one fallback; whichever finishes
// first without error supplies the value, and the loser is cancelled. With
// only one healthy backend it degrades to a single invocation.
type Redundant struct{}

// Execute implements Policy.
func (Redundant) Execute(ctx context.Context, t task.Task, reg *backend.Registry) report.ExecutionResult {
	logger := ctxlog.FromContext(ctx).With("task", t.ID, "policy", "redundant")
	started := time.Now()

	hinted, rest := pickHinted(t, reg)
	var racers []backend.Backend
	if hinted != nil {
		racers = append(racers, hinted)
	}
	// One fallback at most: the first healthy backend that is not the hint.
	if len(rest) > 0 {
		racers = append(racers, rest[0])
	}
	if hinted == nil && len(rest) > 1 {
		racers = append(racers, rest[1])
	}

	if len(racers) == 0 {
		logger.Warn("No healthy backend for task.")
		return failure(t, nil, backend.ErrNoHealthyBackend, started)
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan invocation, len(racers))
	invoked := make([]string, 0, len(racers))
	for _, b := range racers {
		invoked = append(invoked, b.Name())
		go func(b backend.Backend) {
			results <- invoke(raceCtx, b, t)
		}(b)
	}
	logger.Debug("Racing backends.", "backends", invoked)

	var firstErr error
	for range racers {
		inv := <-results
		if inv.err != nil {
			if firstErr == nil {
				firstErr = inv.err
			}
			continue // wait for the other racer
		}
		// First clean finisher wins; cancel the rest and drop their results.
		cancel()
		logger.Debug("Race won.", "backend", inv.backend)
		return report.ExecutionResult{
			TaskID:          t.ID,
			Status:          report.Succeeded,
			BackendsInvoked: invoked,
			Value:           inv.value,
			Latency:         time.Since(started),
		}
	}

	return failure(t, invoked, firstErr, started)
}
