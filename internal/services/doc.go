// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Classify, which
//     sorts failures into input, dependency, external, and contract
//     categories for the report store.
//
// Stages report expected failures as data (ok=false, skipped, hints); the
// markers here are for the errors that still escape: contract violations and
// caller-owned infrastructure such as the report store.
package services
