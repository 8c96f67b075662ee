package sched

import (
	"time"

	"github.com/vk/tandemgrid/internal/policy"
	"github.com/vk/tandemgrid/internal/task"
)

const (
	// DefaultMaxConcurrencyPerLevel caps how many tasks of one level run at once.
	DefaultMaxConcurrencyPerLevel = 10
	// DefaultPerTaskTimeout bounds every task execution, multi-backend calls included.
	DefaultPerTaskTimeout = 5 * time.Second
)

// Options configures a Scheduler. The zero value is usable: every field has
// a working default.
type Options struct {
	// MaxConcurrencyPerLevel limits concurrent task executions within a
	// level. The effective limit per level is min(len(level), this value).
	MaxConcurrencyPerLevel int

	// PerTaskTimeout bounds a single task execution. On expiry the task is
	// recorded as Failed with a timeout error and outstanding backend calls
	// are cancelled.
	PerTaskTimeout time.Duration

	// DefaultPolicy applies to tasks that leave their policy selector unset.
	DefaultPolicy task.PolicyKind

	// Equal is the value comparison used by the Consensus policy. Required
	// only when some task may run under Consensus.
	Equal policy.EqualFunc
}

// withDefaults fills the zero fields.
func (o Options) withDefaults() Options {
	if o.MaxConcurrencyPerLevel <= 0 {
		o.MaxConcurrencyPerLevel = DefaultMaxConcurrencyPerLevel
	}
	if o.PerTaskTimeout <= 0 {
		o.PerTaskTimeout = DefaultPerTaskTimeout
	}
	if o.DefaultPolicy == task.PolicyUnset {
		o.DefaultPolicy = task.PolicySingle
	}
	return o
}
