// Package logs reads carinspect.log for the `logs` command: the last N lines,
// lines appended after an offset, and follow mode that polls until the
// context ends.
package logs
