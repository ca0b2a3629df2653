// Package ffprobe runs `ffprobe -show_format -show_streams -of json` on a
// capture and decodes the output.
//
// Inspect shells out; Parse decodes a saved document. Result exposes the
// first video and audio streams and resolves duration, frame rate and frame
// count from whichever stream or format field carries them. Missing or
// malformed numbers come back as 0 and callers treat them as unknown.
package ffprobe
