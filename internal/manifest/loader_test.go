package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tandemgrid/internal/task"
)

func writeGrid(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullGridFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGrid(t, dir, "main.hcl", `
		settings {
			max_concurrency = 4
			task_timeout    = "250ms"
			default_policy  = "redundant"
		}

		task "scan" {
			priority = 1
			backend  = "fast"

			payload {
				target = "api.internal"
				depth  = 3
			}
		}

		task "verify" {
			priority   = 2
			depends_on = ["scan"]
			policy     = "consensus"
		}
	`)

	grid, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 4, grid.Settings.MaxConcurrency)
	assert.Equal(t, 250*time.Millisecond, grid.Settings.TaskTimeout)
	assert.Equal(t, task.PolicyRedundant, grid.Settings.DefaultPolicy)

	require.Len(t, grid.Tasks, 2)

	scan := grid.Tasks[0]
	assert.Equal(t, "scan", scan.ID)
	assert.Equal(t, "fast", scan.BackendHint)
	assert.Equal(t, 1, scan.Priority)
	assert.Equal(t, task.PolicyUnset, scan.Policy)
	assert.True(t, scan.Payload.GetAttr("target").RawEquals(cty.StringVal("api.internal")))
	assert.True(t, scan.Payload.GetAttr("depth").RawEquals(cty.NumberIntVal(3)))

	verify := grid.Tasks[1]
	assert.Equal(t, []string{"scan"}, verify.DependsOn)
	assert.Equal(t, task.PolicyConsensus, verify.Policy)
	assert.True(t, verify.Payload.RawEquals(cty.EmptyObjectVal))
}

func TestLoad_SingleFilePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeGrid(t, dir, "one.hcl", `task "solo" {}`)

	grid, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, grid.Tasks, 1)
	assert.Equal(t, "solo", grid.Tasks[0].ID)
}

func TestLoad_DuplicateTaskIDAcrossFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGrid(t, dir, "a.hcl", `task "dup" {}`)
	writeGrid(t, dir, "b.hcl", `task "dup" {}`)

	_, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `task "dup" defined in both`)
}

func TestLoad_InvalidPolicyName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGrid(t, dir, "bad.hcl", `
		task "t" {
			policy = "democracy"
		}
	`)

	_, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown policy")
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGrid(t, dir, "bad.hcl", `
		settings {
			task_timeout = "yesterday"
		}
	`)

	_, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task_timeout")
}

func TestLoad_MissingPathIsAnError(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error accessing path")
}
