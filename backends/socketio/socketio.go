// Package socketio provides a backend that executes a task by emitting its
// payload as a Socket.IO event and waiting for a response event. It is the
// remote, slow-but-trusted end of the backend spectrum: the far side decides
// what the task means.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/tandemgrid/internal/backend"
	"github.com/vk/tandemgrid/internal/ctxlog"
	"github.com/vk/tandemgrid/internal/task"
)

// Backend invokes tasks over a Socket.IO connection.
type Backend struct {
	name string
}

// New creates a socketio backend with the given registry name.
func New(name string) *Backend {
	return &Backend{name: name}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return b.name }

// Healthy implements backend.Backend.
func (b *Backend) Healthy() bool { return true }

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	value cty.Value
	err   error
}

// Invoke implements backend.Backend. Payload attributes:
//
//	url                  = "wss://host/socket.io"  (required)
//	namespace            = "/"                     (optional)
//	emit_event           = "task"                  (required)
//	on_event             = "result"                (required)
//	data                 = { ... }                 (optional, sent with emit_event)
//	insecure_skip_verify = true                    (optional)
//
// The connection lives for the duration of one invocation; the task context
// bounds connect, emit, and the wait for the response event.
func (b *Backend) Invoke(ctx context.Context, t task.Task) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("backend", b.name, "task", t.ID)

	rawURL, err := backend.PayloadString(t.Payload, "url", "")
	if err != nil {
		return cty.NilVal, err
	}
	if rawURL == "" {
		return cty.NilVal, fmt.Errorf("payload attribute %q is required", "url")
	}
	namespace, err := backend.PayloadString(t.Payload, "namespace", "/")
	if err != nil {
		return cty.NilVal, err
	}
	emitEvent, err := backend.PayloadString(t.Payload, "emit_event", "")
	if err != nil {
		return cty.NilVal, err
	}
	onEvent, err := backend.PayloadString(t.Payload, "on_event", "")
	if err != nil {
		return cty.NilVal, err
	}
	if emitEvent == "" || onEvent == "" {
		return cty.NilVal, fmt.Errorf("payload attributes %q and %q are required", "emit_event", "on_event")
	}

	emitData, err := payloadData(t.Payload)
	if err != nil {
		return cty.NilVal, err
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to parse URL: %w", err)
	}

	var isConnected atomic.Bool
	done := make(chan opResult, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	if insecure := backend.PayloadAttr(t.Payload, "insecure_skip_verify"); insecure.Type() == cty.Bool && !insecure.IsNull() && insecure.True() {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Debug("Connected.", "namespace", namespace, "sid", io.Id())
		io.Emit(emitEvent, emitData)
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		if err, ok := errs[0].(error); ok {
			done <- opResult{err: err}
		} else {
			done <- opResult{err: fmt.Errorf("connect error: %v", errs[0])}
		}
	})

	io.On(types.EventName(onEvent), func(data ...any) {
		var response any
		if len(data) > 0 {
			response = data[0]
		}
		value, err := responseValue(response)
		done <- opResult{value: value, err: err}
	})

	io.Connect()

	select {
	case <-ctx.Done():
		if isConnected.Load() {
			return cty.NilVal, fmt.Errorf("gave up waiting for event %q: %w", onEvent, ctx.Err())
		}
		return cty.NilVal, fmt.Errorf("gave up waiting for initial connection: %w", ctx.Err())
	case res := <-done:
		return res.value, res.err
	}
}

// payloadData converts the payload's `data` attribute into the generic map
// the Socket.IO client emits.
func payloadData(payload cty.Value) (map[string]any, error) {
	v := backend.PayloadAttr(payload, "data")
	if v == cty.NilVal || v.IsNull() {
		return map[string]any{}, nil
	}
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, fmt.Errorf("payload attribute %q: %w", "data", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("payload attribute %q: %w", "data", err)
	}
	return out, nil
}

// responseValue converts the far side's JSON-shaped response into a cty value.
func responseValue(response any) (cty.Value, error) {
	if response == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	raw, err := json.Marshal(response)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to encode response: %w", err)
	}
	impliedType, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to type response: %w", err)
	}
	return ctyjson.Unmarshal(raw, impliedType)
}
