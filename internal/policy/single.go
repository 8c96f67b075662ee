package policy

import (
	"context"
	"time"

	"github.com/vk/tandemgrid/internal/backend"
	"github.com/vk/tandemgrid/internal/ctxlog"
	"github.com/vk/tandemgrid/internal/report"
	"github.com/vk/tandemgrid/internal/task"
)

// Single invokes exactly one backend: the task's hint when healthy, otherwise
// the first healthy backend in registry order. Fastest, lowest confidence.
type Single struct{}

// Execute implements Policy.
func (Single) Execute(ctx context.Context, t task.Task, reg *backend.Registry) report.ExecutionResult {
	logger := ctxlog.FromContext(ctx).With("task", t.ID, "policy", "single")
	started := time.Now()

	chosen, rest := pickHinted(t, reg)
	if chosen == nil {
		if len(rest) == 0 {
			logger.Warn("No healthy backend for task.")
			return failure(t, nil, backend.ErrNoHealthyBackend, started)
		}
		chosen = rest[0]
	}

	logger.Debug("Invoking backend.", "backend", chosen.Name())
	inv := invoke(ctx, chosen, t)
	if inv.err != nil {
		return failure(t, []string{inv.backend}, inv.err, started)
	}

	return report.ExecutionResult{
		TaskID:          t.ID,
		Status:          report.Succeeded,
		BackendsInvoked: []string{inv.backend},
		Value:           inv.value,
		Latency:         time.Since(started),
	}
}
