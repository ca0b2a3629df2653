// Package damage scores frames for visible damage.
//
// Detector mode runs an external object detector over a capped subset of
// frames and classifies severity from suspect-label counts and the peak
// confidence. Heuristic mode needs no model: each frame gets scratch, dent,
// and repaint proxies in [0,1] whose weighted mean maps to severity. Probe
// decides the mode once; a detector that later fails drops the run to
// heuristic mode instead of failing it.
package damage
