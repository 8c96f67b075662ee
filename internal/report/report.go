// Package report holds the per-task execution results and the aggregate
// run report returned to callers. A RunReport is created empty at run start,
// mutated only by the scheduling coordinator, and frozen when the run ends.
package report

import (
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Status classifies the outcome of a single task execution.
type Status int

const (
	// Succeeded means a backend (or an agreeing set of backends) produced a value.
	Succeeded Status = iota
	// Failed means no usable value was produced: backend error, timeout, or
	// no healthy backend.
	Failed
	// PolicyMismatch means consensus could not find agreement. It is not a
	// failure for scheduling purposes, but is counted separately so callers
	// can treat it as a trust signal.
	PolicyMismatch
)

// String returns the human-readable status name.
func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case PolicyMismatch:
		return "policy_mismatch"
	default:
		return "unknown"
	}
}

// BackendResult is the outcome of one backend invocation, kept when a
// consensus run ends in disagreement.
type BackendResult struct {
	Backend string
	Value   cty.Value
	Err     error
}

// ExecutionResult is the single, immutable record of one task's execution.
type ExecutionResult struct {
	TaskID          string
	Status          Status
	BackendsInvoked []string
	Value           cty.Value
	Err             error
	// Disagreement carries every individual backend result when the status
	// is PolicyMismatch. It is nil otherwise.
	Disagreement []BackendResult
	Latency      time.Duration
}

// RunReport aggregates every ExecutionResult of one scheduling run.
type RunReport struct {
	// Results maps task ID to its execution result. Tasks never launched
	// because the run was cancelled have no entry.
	Results map[string]ExecutionResult

	TasksTotal       int
	Succeeded        int
	Failed           int
	PolicyMismatches int

	WallClock      time.Duration
	TasksPerSecond float64

	// Utilization counts invocations per backend name.
	Utilization map[string]int
}

// NewRunReport returns an empty report sized for the given task count.
func NewRunReport(tasksTotal int) *RunReport {
	return &RunReport{
		Results:     make(map[string]ExecutionResult, tasksTotal),
		TasksTotal:  tasksTotal,
		Utilization: make(map[string]int),
	}
}

// Record folds one execution result into the report. It must only be called
// from the scheduling coordinator; the report has no internal locking.
func (r *RunReport) Record(res ExecutionResult) {
	r.Results[res.TaskID] = res

	switch res.Status {
	case Succeeded:
		r.Succeeded++
	case Failed:
		r.Failed++
	case PolicyMismatch:
		r.PolicyMismatches++
	}

	for _, name := range res.BackendsInvoked {
		r.Utilization[name]++
	}
}

// Finalize freezes the report with the run's wall-clock duration and derives
// the throughput figure. Called exactly once, when the scheduler drains.
func (r *RunReport) Finalize(wallClock time.Duration) {
	r.WallClock = wallClock
	if secs := wallClock.Seconds(); secs > 0 {
		r.TasksPerSecond = float64(len(r.Results)) / secs
	}
}
