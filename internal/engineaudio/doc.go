// Package engineaudio turns an engine sound clip into a bounded risk signal:
// level, clipping, roughness, and spectral band shares combined into a score
// in [0,1]. It is not a mechanical diagnosis.
//
// Transcoding runs ffmpeg in a private temp directory under a hard timeout;
// any failure skips the analysis instead of failing the run.
package engineaudio
