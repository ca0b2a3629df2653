// Package reportstore persists finished inspection reports keyed by run
// token.
//
// The SQLite store keeps one row per run with the columns the CLI lists
// (status, vehicle, severity, confidence) and the full report as JSON. The
// schema is versioned; a database written by a different version is refused
// rather than migrated, so operators delete it and start over. A map-backed
// store with the same contract serves tests and one-shot runs that should not
// touch disk.
package reportstore
