// Package coverage estimates how much of the vehicle a capture showed from
// per-cell motion presence across consecutive stills. It is UX guidance, not
// a geometric reconstruction: a camera that never moves scores zero.
package coverage
