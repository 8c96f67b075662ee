package manifest

import (
	"github.com/hashicorp/hcl/v2"
)

// payloadBlock captures the free-form attributes of a task's `payload` block.
// The attributes are kept as raw HCL and evaluated during translation.
type payloadBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// taskBlock is the HCL shape of a `task` block in a grid file.
type taskBlock struct {
	ID        string        `hcl:"id,label"`
	Priority  int           `hcl:"priority,optional"`
	DependsOn []string      `hcl:"depends_on,optional"`
	Backend   string        `hcl:"backend,optional"`
	Policy    string        `hcl:"policy,optional"`
	Payload   *payloadBlock `hcl:"payload,block"`
}

// settingsBlock is the HCL shape of the optional `settings` block. All fields
// are optional; unset fields leave the CLI-provided values in force.
type settingsBlock struct {
	MaxConcurrency int    `hcl:"max_concurrency,optional"`
	TaskTimeout    string `hcl:"task_timeout,optional"`
	DefaultPolicy  string `hcl:"default_policy,optional"`
}

// fileRoot decodes all recognized top-level blocks of a grid file.
type fileRoot struct {
	Settings *settingsBlock `hcl:"settings,block"`
	Tasks    []*taskBlock   `hcl:"task,block"`
	Remain   hcl.Body       `hcl:",remain"`
}
