package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/tandemgrid/internal/app"
	"github.com/vk/tandemgrid/internal/sched"
	"github.com/vk/tandemgrid/internal/task"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated AppConfig,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.AppConfig, bool, error) {
	flagSet := flag.NewFlagSet("tandemgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
TandemGrid - a dependency-leveled parallel task scheduler with pluggable backends.

Usage:
  tandemgrid [options] [GRID_PATH]

Arguments:
  GRID_PATH
    Path to a single .hcl grid file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	gridFlag := flagSet.String("grid", "", "Path to the grid file or directory.")
	gFlag := flagSet.String("g", "", "Path to the grid file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	reportFormatFlag := flagSet.String("report-format", "text", "Run report output format. Options: 'text' or 'json'.")
	maxConcurrencyFlag := flagSet.Int("max-concurrency", sched.DefaultMaxConcurrencyPerLevel, "Maximum concurrent task executions within one level.")
	taskTimeoutFlag := flagSet.Duration("task-timeout", sched.DefaultPerTaskTimeout, "Timeout applied to each task execution.")
	defaultPolicyFlag := flagSet.String("default-policy", "single", "Policy for tasks that do not choose one. Options: 'single', 'redundant', 'consensus'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *gridFlag != "" {
		path = *gridFlag
	} else if *gFlag != "" {
		path = *gFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	reportFormat := strings.ToLower(*reportFormatFlag)
	if reportFormat != "text" && reportFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid report-format: must be 'text' or 'json'"}
	}

	if _, err := task.ParsePolicy(*defaultPolicyFlag); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *maxConcurrencyFlag <= 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid max-concurrency: must be greater than zero"}
	}
	if *taskTimeoutFlag <= 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid task-timeout: must be greater than zero"}
	}

	return &app.AppConfig{
		GridPath:        path,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		ReportFormat:    reportFormat,
		MaxConcurrency:  *maxConcurrencyFlag,
		TaskTimeout:     *taskTimeoutFlag,
		DefaultPolicy:   strings.ToLower(*defaultPolicyFlag),
	}, false, nil
}
