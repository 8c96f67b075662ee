package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zclconf/go-cty/cty"
)

func TestRunReport_RecordAndFinalize(t *testing.T) {
	t.Parallel()

	r := NewRunReport(4)

	r.Record(ExecutionResult{TaskID: "a", Status: Succeeded, BackendsInvoked: []string{"fast"}, Value: cty.True})
	r.Record(ExecutionResult{TaskID: "b", Status: Failed, BackendsInvoked: []string{"fast"}, Err: errors.New("boom")})
	r.Record(ExecutionResult{TaskID: "c", Status: PolicyMismatch, BackendsInvoked: []string{"fast", "slow"}})
	r.Record(ExecutionResult{TaskID: "d", Status: Succeeded, BackendsInvoked: []string{"slow"}})

	assert.Equal(t, 4, r.TasksTotal)
	assert.Equal(t, 2, r.Succeeded)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.PolicyMismatches)
	assert.Equal(t, map[string]int{"fast": 3, "slow": 2}, r.Utilization)

	r.Finalize(2 * time.Second)
	assert.Equal(t, 2*time.Second, r.WallClock)
	assert.InDelta(t, 2.0, r.TasksPerSecond, 0.001)
}

func TestRunReport_FinalizeZeroDuration(t *testing.T) {
	t.Parallel()

	r := NewRunReport(0)
	r.Finalize(0)
	assert.Zero(t, r.TasksPerSecond)
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "policy_mismatch", PolicyMismatch.String())
}
