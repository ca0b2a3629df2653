// Package frames extracts the still set the coverage, damage, and evidence
// stages work from.
//
// The stride honours a minimum temporal gap between stills (to avoid near
// duplicates) and an even span over the clip up to MaxFrames. Stills are
// resized with a box filter so the longer side is at most LongSide and saved
// as frame_NNN_<token>.jpg. A run is usable only with at least MinFrames
// stills.
package frames
