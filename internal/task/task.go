// Package task defines the format-agnostic representation of a schedulable
// unit of work and its execution policy selector.
package task

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Task is a single named unit of work submitted to the scheduler. Tasks are
// created fresh per run; identity is not reused across runs.
type Task struct {
	// ID uniquely identifies the task within a single run.
	ID string

	// BackendHint names the preferred backend. It may be empty, or name a
	// backend that turns out to be unhealthy; policies fall back in both cases.
	BackendHint string

	// Priority orders tasks within a level and breaks dependency cycles.
	// A lower value means a higher priority.
	Priority int

	// DependsOn lists the IDs of tasks that must resolve before this one may
	// start. Entries naming tasks absent from the run are treated as already
	// satisfied.
	DependsOn []string

	// Policy selects how backends are consulted for this task. PolicyUnset
	// defers to the scheduler's configured default.
	Policy PolicyKind

	// Payload is the opaque data handed to the backend.
	Payload cty.Value
}

// PolicyKind selects one of the execution policy variants.
type PolicyKind int

const (
	// PolicyUnset means the task did not choose; the scheduler default applies.
	PolicyUnset PolicyKind = iota
	// PolicySingle consults exactly one backend.
	PolicySingle
	// PolicyRedundant races the hinted backend against one fallback.
	PolicyRedundant
	// PolicyConsensus consults every healthy backend and requires agreement.
	PolicyConsensus
)

// String returns the manifest-facing name of the policy kind.
func (k PolicyKind) String() string {
	switch k {
	case PolicySingle:
		return "single"
	case PolicyRedundant:
		return "redundant"
	case PolicyConsensus:
		return "consensus"
	default:
		return "unset"
	}
}

// ParsePolicy converts a manifest or CLI policy name into a PolicyKind. The
// empty string maps to PolicyUnset.
func ParsePolicy(s string) (PolicyKind, error) {
	switch strings.ToLower(s) {
	case "":
		return PolicyUnset, nil
	case "single":
		return PolicySingle, nil
	case "redundant":
		return PolicyRedundant, nil
	case "consensus":
		return PolicyConsensus, nil
	default:
		return PolicyUnset, fmt.Errorf("unknown policy %q: must be 'single', 'redundant', or 'consensus'", s)
	}
}
