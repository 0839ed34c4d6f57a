// Package logs tails the daemon log file for CLI diagnostics.
//
// It streams minutes.log with bounded memory usage, supports "last N lines"
// reads, and powers follow-mode updates for `minutes logs --follow`. Callers
// supply context deadlines so polling shuts down cleanly when the CLI exits.
package logs
