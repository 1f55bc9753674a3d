// Package logging assembles structured slog loggers and formatting helpers used
// across vidslides.
//
// It owns the configurable console/JSON handlers, fans daemon output out to
// the terminal and a JSON log file, and opens per-job log files that live next
// to the job's artifacts. Context-aware helpers tag log lines with job IDs,
// stages, and correlation IDs. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
