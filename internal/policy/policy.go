// Package policy implements the per-task execution policies: Single,
// Redundant, and Consensus. A policy decides how many backends to consult for
// a task and how to reconcile their outputs into one ExecutionResult.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tandemgrid/internal/backend"
	"github.com/vk/tandemgrid/internal/report"
	"github.com/vk/tandemgrid/internal/task"
)

// ErrBackendTimeout marks a task that failed because its backend invocation
// exceeded the per-task timeout.
var ErrBackendTimeout = errors.New("backend invocation timed out")

// EqualFunc compares two backend output values for consensus agreement.
// Payload types are opaque, so no default equality is assumed; callers must
// supply one to use the Consensus policy.
type EqualFunc func(a, b cty.Value) bool

// Policy executes one task against the backend registry and reconciles the
// outcome. Implementations never return an error to the scheduler: every
// failure mode is folded into the ExecutionResult.
type Policy interface {
	Execute(ctx context.Context, t task.Task, reg *backend.Registry) report.ExecutionResult
}

// For returns the policy implementation for a task, falling back to the
// scheduler's default kind when the task left its selector unset.
func For(kind, fallback task.PolicyKind, equal EqualFunc) (Policy, error) {
	if kind == task.PolicyUnset {
		kind = fallback
	}
	switch kind {
	case task.PolicySingle, task.PolicyUnset:
		return Single{}, nil
	case task.PolicyRedundant:
		return Redundant{}, nil
	case task.PolicyConsensus:
		if equal == nil {
			return nil, fmt.Errorf("consensus policy requires an equality function")
		}
		return Consensus{Equal: equal}, nil
	default:
		return nil, fmt.Errorf("unknown policy kind %d", kind)
	}
}

// invocation is the raw outcome of a single backend call.
type invocation struct {
	backend string
	value   cty.Value
	err     error
}

// invoke calls one backend and normalizes its error: a context deadline
// becomes ErrBackendTimeout, any other error is wrapped with the backend name.
// The call runs in its own goroutine so a backend that ignores ctx cannot
// block the policy: once ctx ends, invoke returns and the backend's eventual
// result lands in the buffered channel and is discarded.
func invoke(ctx context.Context, b backend.Backend, t task.Task) invocation {
	done := make(chan invocation, 1)
	go func() {
		value, err := b.Invoke(ctx, t)
		done <- invocation{backend: b.Name(), value: value, err: err}
	}()

	select {
	case inv := <-done:
		if inv.err != nil {
			return invocation{backend: b.Name(), err: wrapInvokeErr(b.Name(), inv.err)}
		}
		return inv
	case <-ctx.Done():
		return invocation{backend: b.Name(), err: wrapInvokeErr(b.Name(), ctx.Err())}
	}
}

func wrapInvokeErr(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("backend %q: %w", name, ErrBackendTimeout)
	}
	return fmt.Errorf("backend %q: %w", name, err)
}

// pickHinted returns the task's hinted backend when it exists and is healthy,
// plus the remaining healthy backends in registry order.
func pickHinted(t task.Task, reg *backend.Registry) (hinted backend.Backend, rest []backend.Backend) {
	if t.BackendHint != "" {
		if b, ok := reg.Get(t.BackendHint); ok && b.Healthy() {
			hinted = b
		}
	}
	for _, b := range reg.Healthy() {
		if hinted != nil && b.Name() == hinted.Name() {
			continue
		}
		rest = append(rest, b)
	}
	return hinted, rest
}

// failure builds a Failed result for the task.
func failure(t task.Task, invoked []string, err error, started time.Time) report.ExecutionResult {
	return report.ExecutionResult{
		TaskID:          t.ID,
		Status:          report.Failed,
		BackendsInvoked: invoked,
		Err:             err,
		Latency:         time.Since(started),
	}
}
