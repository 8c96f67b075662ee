// Package httpcheck provides a backend that executes a task as an HTTP
// request. The task context bounds the whole exchange, so the scheduler's
// per-task timeout applies to connection and body read alike.
package httpcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tandemgrid/internal/backend"
	"github.com/vk/tandemgrid/internal/ctxlog"
	"github.com/vk/tandemgrid/internal/task"
)

// Backend performs HTTP requests described by task payloads.
type Backend struct {
	name   string
	client *http.Client
}

// New creates an httpcheck backend with the given registry name. A nil
// client falls back to http.DefaultClient.
func New(name string, client *http.Client) *Backend {
	if client == nil {
		client = http.DefaultClient
	}
	return &Backend{name: name, client: client}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return b.name }

// Healthy implements backend.Backend.
func (b *Backend) Healthy() bool { return true }

// Invoke implements backend.Backend. Payload attributes:
//
//	url    = "https://example.com/health"  (required)
//	method = "GET"                         (optional, default GET)
//
// The result is an object with `status_code` and `body`.
func (b *Backend) Invoke(ctx context.Context, t task.Task) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("backend", b.name, "task", t.ID)

	url, err := backend.PayloadString(t.Payload, "url", "")
	if err != nil {
		return cty.NilVal, err
	}
	if url == "" {
		return cty.NilVal, fmt.Errorf("payload attribute %q is required", "url")
	}
	method, err := backend.PayloadString(t.Payload, "method", http.MethodGet)
	if err != nil {
		return cty.NilVal, err
	}

	logger.Debug("Making HTTP request.", "method", method, "url", url)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read response body: %w", err)
	}
	logger.Debug("Received HTTP response.", "status", resp.Status)

	return cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"body":        cty.StringVal(string(body)),
	}), nil
}
