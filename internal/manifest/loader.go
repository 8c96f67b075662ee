// Package manifest loads tandem grid files: HCL documents declaring the
// tasks of a run (with priorities, dependencies, backend hints, policies, and
// payloads) plus optional scheduler settings. Files are translated into the
// format-agnostic task model before the scheduler ever sees them.
package manifest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tandemgrid/internal/ctxlog"
	"github.com/vk/tandemgrid/internal/fsutil"
	"github.com/vk/tandemgrid/internal/task"
)

// Settings carries the scheduler options a grid file may override. Zero
// values mean "not set in the manifest".
type Settings struct {
	MaxConcurrency int
	TaskTimeout    time.Duration
	DefaultPolicy  task.PolicyKind
}

// Grid is the loaded, translated content of one or more grid files.
type Grid struct {
	Tasks    []task.Task
	Settings Settings
}

// Loader parses tandem grid files.
type Loader struct{}

// NewLoader creates a grid file loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads every .hcl file under the given paths (files or directories),
// decodes their task and settings blocks, and merges them into a single Grid.
// Duplicate task IDs across files are rejected here, before scheduling.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Grid, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := l.findGridFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered grid files.", "count", len(files))

	grid := &Grid{}
	seen := make(map[string]string) // task ID -> file it came from
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse grid file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode grid file %s: %w", file, diags)
		}

		for _, tb := range root.Tasks {
			if prev, dup := seen[tb.ID]; dup {
				return nil, fmt.Errorf("task %q defined in both %s and %s", tb.ID, prev, file)
			}
			seen[tb.ID] = file

			t, err := l.translateTask(tb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			grid.Tasks = append(grid.Tasks, t)
		}

		if root.Settings != nil {
			if err := l.mergeSettings(&grid.Settings, root.Settings); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
		}
	}

	logger.Debug("Grid loaded.", "tasks", len(grid.Tasks))
	return grid, nil
}

// translateTask converts one decoded task block into the task model. Payload
// attributes are evaluated eagerly (no cross-task references in payloads) and
// folded into a single cty object value.
func (l *Loader) translateTask(tb *taskBlock) (task.Task, error) {
	policy, err := task.ParsePolicy(tb.Policy)
	if err != nil {
		return task.Task{}, fmt.Errorf("task %q: %w", tb.ID, err)
	}

	payload := cty.EmptyObjectVal
	if tb.Payload != nil {
		attrs, diags := tb.Payload.Body.JustAttributes()
		if diags.HasErrors() {
			return task.Task{}, fmt.Errorf("task %q payload: %w", tb.ID, diags)
		}
		values := make(map[string]cty.Value, len(attrs))
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return task.Task{}, fmt.Errorf("task %q payload attribute %q: %w", tb.ID, name, diags)
			}
			values[name] = val
		}
		if len(values) > 0 {
			payload = cty.ObjectVal(values)
		}
	}

	return task.Task{
		ID:          tb.ID,
		BackendHint: tb.Backend,
		Priority:    tb.Priority,
		DependsOn:   tb.DependsOn,
		Policy:      policy,
		Payload:     payload,
	}, nil
}

// mergeSettings folds one settings block into the accumulated settings.
// Later files win over earlier ones for fields they set.
func (l *Loader) mergeSettings(dst *Settings, sb *settingsBlock) error {
	if sb.MaxConcurrency < 0 {
		return fmt.Errorf("settings: max_concurrency must be positive, got %d", sb.MaxConcurrency)
	}
	if sb.MaxConcurrency > 0 {
		dst.MaxConcurrency = sb.MaxConcurrency
	}
	if sb.TaskTimeout != "" {
		d, err := time.ParseDuration(sb.TaskTimeout)
		if err != nil {
			return fmt.Errorf("settings: invalid task_timeout: %w", err)
		}
		dst.TaskTimeout = d
	}
	if sb.DefaultPolicy != "" {
		kind, err := task.ParsePolicy(sb.DefaultPolicy)
		if err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		dst.DefaultPolicy = kind
	}
	return nil
}

// findGridFiles flattens the given paths into a deduplicated list of .hcl
// files. A path may be a single file or a directory searched recursively.
func (l *Loader) findGridFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		var found []string
		if info.IsDir() {
			found, err = fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, fmt.Errorf("error searching %s: %w", path, err)
			}
		} else {
			found = []string{path}
		}

		for _, f := range found {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			all = append(all, f)
		}
	}
	return all, nil
}
