// Package inspection runs the full pre-inspection pipeline for one capture.
//
// A run owns a work directory named after its token and holds an exclusive
// file lock on it for its duration, so two invocations with the same token
// cannot interleave. Stages execute in a fixed order: quality, frames, then
// coverage, damage, and tamper over the same stills, then engine audio,
// confidence, narrative, and evidence. Each stage reports its own
// degradations; Run only returns an error for invalid requests, a contended
// lock, cancellation, or a failure to persist the report.
package inspection
