// Package tamper holds two single-photo repair heuristics: a fastener check
// for wrench marks and cracked paint around bolt heads, and a panel check
// for local repaint. Both return DETECTED, SUSPECTED, or
// INSUFFICIENT_EVIDENCE with a score in [0,1] and never modify the image.
package tamper
