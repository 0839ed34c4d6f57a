// Package logging wires log/slog for the daemon and CLI.
//
// It provides construction from config (level, format, optional log file),
// thin Attr aliases so call sites stay terse, and helpers that derive
// structured fields (run_id, stage, correlation_id) from context values set
// by the services package.
package logging
