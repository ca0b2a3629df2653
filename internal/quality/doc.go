// Package quality implements the capture quality gate.
//
// Check decodes every SampleStride-th frame (up to MaxSamples) and derives:
//   - sharpness: Laplacian variance per frame, mean and 10th percentile
//   - exposure: mean luma per frame, mean plus 10th/90th percentiles
//   - shake and motion: corner tracking between consecutive samples
//
// Six flags are raised from fixed thresholds and each raised flag adds one
// hint. ok is false for short, low-resolution, or blurry captures and for
// captures that are both too dark and too bright. Photo sets skip the
// duration and shake checks.
package quality
