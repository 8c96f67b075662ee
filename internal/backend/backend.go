// Package backend defines the pluggable execution backend contract and the
// registry the scheduler selects backends from.
package backend

import (
	"context"
	"errors"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tandemgrid/internal/task"
)

// ErrNoHealthyBackend is returned when a policy finds zero healthy backends
// to execute a task with.
var ErrNoHealthyBackend = errors.New("no healthy backend available")

// Backend is a capability that can execute one task. Implementations must be
// safe for concurrent invocation; a stateless backend may be shared across
// concurrent runs.
type Backend interface {
	// Name identifies the backend within the registry.
	Name() string

	// Healthy reports whether the backend is currently able to serve
	// invocations. Unhealthy backends are skipped in fallback selection and
	// excluded from consensus agreement sets.
	Healthy() bool

	// Invoke executes the task's payload and returns a value or an error.
	// Implementations must honour ctx cancellation; those that do not simply
	// have their results discarded.
	Invoke(ctx context.Context, t task.Task) (cty.Value, error)
}
