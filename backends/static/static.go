// Package static provides a deterministic in-process backend. It echoes the
// task payload (or a designated `value` attribute) after an optional delay,
// or fails on demand. It exists for grid file demos and end-to-end tests;
// registering two instances makes the redundant and consensus policies
// observable without any external service.
package static

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tandemgrid/internal/backend"
	"github.com/vk/tandemgrid/internal/task"
)

// Backend is a deterministic echo backend.
type Backend struct {
	name string
	down atomic.Bool
}

// New creates a healthy static backend with the given registry name.
func New(name string) *Backend {
	return &Backend{name: name}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return b.name }

// Healthy implements backend.Backend.
func (b *Backend) Healthy() bool { return !b.down.Load() }

// SetDown toggles the backend's health, e.g. to demo fallback selection.
func (b *Backend) SetDown(down bool) { b.down.Store(down) }

// Invoke implements backend.Backend. Recognized payload attributes:
//
//	delay = "20ms"   sleep before answering (honours ctx cancellation)
//	fail  = "why"    return an error with this message
//	value = <any>    the value to return; defaults to the whole payload
func (b *Backend) Invoke(ctx context.Context, t task.Task) (cty.Value, error) {
	delay, err := backend.PayloadString(t.Payload, "delay", "")
	if err != nil {
		return cty.NilVal, err
	}
	if delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return cty.NilVal, err
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return cty.NilVal, ctx.Err()
		}
	}

	failMsg, err := backend.PayloadString(t.Payload, "fail", "")
	if err != nil {
		return cty.NilVal, err
	}
	if failMsg != "" {
		return cty.NilVal, errors.New(failMsg)
	}

	if v := backend.PayloadAttr(t.Payload, "value"); v != cty.NilVal {
		return v, nil
	}
	return t.Payload, nil
}
