// Package video decodes capture media into frames for the pipeline stages.
//
// Source is the seam every pixel stage reads through. Three implementations
// exist:
//   - FFmpegSource: ffprobe for metadata, ffmpeg rawvideo rgb24 for frames;
//     stride selection is pushed into an ffmpeg select filter
//   - ImageSource: an ordered set of stills (photo submissions)
//   - MemorySource: frames already decoded by the caller
//
// OpenImage is the shared still decoder; it applies EXIF orientation and
// registers WebP alongside the standard library formats.
package video
