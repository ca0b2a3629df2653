// Package logging assembles structured slog loggers for carinspect.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code tags log lines
// with run IDs and stage names. Degradations (missing detector, failed audio
// transcode, unreachable narrative provider) go through WarnWithContext so
// each warning carries an event type, a hint, and its impact on the report.
//
// NewNop returns a logger for tests and for callers that pass nil.
package logging
