package policy

import (
	"context"
	"time"

	"github.com/vk/tandemgrid/internal/backend"
	"github.com/vk/tandemgrid/internal/ctxlog"
	"github.com/vk/tandemgrid/internal/report"
	"github.com/vk/tandemgrid/internal/task"
)

// Consensus invokes every healthy backend concurrently and requires at least
// two of them to agree on a value. Disagreement (including the degenerate
// single-backend case) yields a PolicyMismatch result carrying every
// individual outcome, which the scheduler records but does not treat as a
// failure.
type Consensus struct {
	// Equal decides value agreement between two backend outputs.
	Equal EqualFunc
}

// Execute implements Policy.
func (c Consensus) Execute(ctx context.Context, t task.Task, reg *backend.Registry) report.ExecutionResult {
	logger := ctxlog.FromContext(ctx).With("task", t.ID, "policy", "consensus")
	started := time.Now()

	backends := reg.Healthy()
	if len(backends) == 0 {
		logger.Warn("No healthy backend for task.")
		return failure(t, nil, backend.ErrNoHealthyBackend, started)
	}

	results := make(chan invocation, len(backends))
	invoked := make([]string, 0, len(backends))
	for _, b := range backends {
		invoked = append(invoked, b.Name())
		go func(b backend.Backend) {
			results <- invoke(ctx, b, t)
		}(b)
	}
	logger.Debug("Gathering consensus.", "backends", invoked)

	all := make([]invocation, 0, len(backends))
	for range backends {
		all = append(all, <-results)
	}

	// Look for any pair of successful results that agree.
	for i := range all {
		if all[i].err != nil {
			continue
		}
		for j := i + 1; j < len(all); j++ {
			if all[j].err != nil {
				continue
			}
			if c.Equal(all[i].value, all[j].value) {
				logger.Debug("Agreement reached.", "backends", []string{all[i].backend, all[j].backend})
				return report.ExecutionResult{
					TaskID:          t.ID,
					Status:          report.Succeeded,
					BackendsInvoked: invoked,
					Value:           all[i].value,
					Latency:         time.Since(started),
				}
			}
		}
	}

	// Every backend errored: that is a genuine failure, not a mismatch.
	var firstErr error
	succeeded := 0
	for _, inv := range all {
		if inv.err == nil {
			succeeded++
		} else if firstErr == nil {
			firstErr = inv.err
		}
	}
	if succeeded == 0 {
		return failure(t, invoked, firstErr, started)
	}

	disagreement := make([]report.BackendResult, 0, len(all))
	for _, inv := range all {
		disagreement = append(disagreement, report.BackendResult{
			Backend: inv.backend,
			Value:   inv.value,
			Err:     inv.err,
		})
	}
	logger.Warn("Consensus not reached.", "backends", invoked)
	return report.ExecutionResult{
		TaskID:          t.ID,
		Status:          report.PolicyMismatch,
		BackendsInvoked: invoked,
		Disagreement:    disagreement,
		Latency:         time.Since(started),
	}
}
