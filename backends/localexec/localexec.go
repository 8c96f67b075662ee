// Package localexec provides a backend that runs the task payload as a local
// subprocess. It is the fast, untrusted end of the backend spectrum: cheap to
// invoke, with no isolation beyond the process boundary.
package localexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tandemgrid/internal/backend"
	"github.com/vk/tandemgrid/internal/ctxlog"
	"github.com/vk/tandemgrid/internal/task"
)

// Backend executes task payloads as local commands.
type Backend struct {
	name string
}

// New creates a localexec backend with the given registry name.
func New(name string) *Backend {
	return &Backend{name: name}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return b.name }

// Healthy implements backend.Backend.
func (b *Backend) Healthy() bool { return true }

// Invoke implements backend.Backend. The payload must carry an `argv` list;
// the command runs under the task context, so a per-task timeout kills it.
//
//	argv = ["sh", "-c", "echo hello"]
//
// The result is an object with `exit_code` and `stdout`. A non-zero exit is
// reported as a backend error, not as a value.
func (b *Backend) Invoke(ctx context.Context, t task.Task) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("backend", b.name, "task", t.ID)

	argv, err := backend.PayloadStringList(t.Payload, "argv")
	if err != nil {
		return cty.NilVal, err
	}
	if len(argv) == 0 {
		return cty.NilVal, fmt.Errorf("payload attribute %q is required", "argv")
	}

	logger.Debug("Running command.", "argv", argv)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return cty.NilVal, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return cty.NilVal, fmt.Errorf("command %q failed: %w", argv[0], err)
		}
		return cty.NilVal, fmt.Errorf("command %q failed: %w: %s", argv[0], err, msg)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"exit_code": cty.NumberIntVal(0),
		"stdout":    cty.StringVal(stdout.String()),
	}), nil
}
