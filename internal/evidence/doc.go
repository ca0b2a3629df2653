// Package evidence copies the most telling damage frames into a per-run
// folder so reports can show them.
//
// Detector findings are ranked by confidence and may carry their bounding
// box drawn onto the thumbnail; heuristic findings keep the engine's order
// and are captioned with their signal triple. Items are numbered by rank, so
// a skipped frame leaves a gap in the suspicious_N.jpg sequence.
package evidence
