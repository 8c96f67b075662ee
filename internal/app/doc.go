// Package app wires the application together: it builds the logger and the
// backend registry, loads the tandem grid files, runs the scheduler, and
// renders the run report. Process-level concerns (flags, exit codes) live in
// the cli package.
package app
