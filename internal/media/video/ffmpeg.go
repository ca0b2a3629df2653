package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"carinspect/internal/media/ffprobe"
)

// FFmpegSource decodes a video file through an ffmpeg rawvideo pipe. The
// first successful probe is cached for the life of the source.
type FFmpegSource struct {
	path    string
	ffmpeg  string
	ffprobe string

	mu     sync.Mutex
	info   Info
	probed bool
}

// NewFFmpegSource returns a source for path using the given binaries. Empty
// binary names fall back to ffmpeg and ffprobe on PATH.
func NewFFmpegSource(path, ffmpegBinary, ffprobeBinary string) *FFmpegSource {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &FFmpegSource{path: path, ffmpeg: ffmpegBinary, ffprobe: ffprobeBinary}
}

// Path returns the underlying media path.
func (s *FFmpegSource) Path() string {
	return s.path
}

// Info implements Source using ffprobe.
func (s *FFmpegSource) Info(ctx context.Context) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.probed {
		return s.info, nil
	}
	info, err := s.probe(ctx)
	if err != nil {
		return Info{}, err
	}
	s.info, s.probed = info, true
	return info, nil
}

func (s *FFmpegSource) probe(ctx context.Context) (Info, error) {
	if _, err := os.Stat(s.path); err != nil {
		return Info{}, fmt.Errorf("video source: %w", err)
	}
	result, err := ffprobe.Inspect(ctx, s.ffprobe, s.path)
	if err != nil {
		return Info{}, err
	}
	stream, ok := result.Video()
	if !ok {
		return Info{}, fmt.Errorf("video source: %s has no video stream", s.path)
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return Info{}, fmt.Errorf("video source: %s reports invalid dimensions %dx%d", s.path, stream.Width, stream.Height)
	}
	return Info{
		Kind:            KindVideo,
		Width:           stream.Width,
		Height:          stream.Height,
		FPS:             result.FrameRate(),
		FrameCount:      result.FrameCount(),
		DurationSeconds: result.DurationSeconds(),
	}, nil
}

// Frames implements Source. Frame selection happens inside ffmpeg so skipped
// frames are never copied through the pipe.
func (s *FFmpegSource) Frames(ctx context.Context, opts ReadOptions, fn func(Frame) error) error {
	opts = opts.normalized()
	info, err := s.Info(ctx)
	if err != nil {
		return err
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(readCtx, s.ffmpeg, s.frameArgs(opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("video source: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("video source: start %s: %w", s.ffmpeg, err)
	}

	frameSize := info.Width * info.Height * 3
	reader := bufio.NewReaderSize(stdout, frameSize)
	// drained is set once ffmpeg closed its output; a trailing partial frame
	// is dropped.
	drained := false
	var callbackErr error
	for n := 0; opts.Limit == 0 || n < opts.Limit; n++ {
		buf := make([]byte, frameSize)
		if _, err := io.ReadFull(reader, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				drained = true
				break
			}
			callbackErr = fmt.Errorf("video source: read frame: %w", err)
			break
		}
		frame := Frame{Index: n * opts.Stride, Image: rgb24ToRGBA(buf, info.Width, info.Height)}
		if err := fn(frame); err != nil {
			if !errors.Is(err, ErrStop) {
				callbackErr = err
			}
			break
		}
	}

	// Stop ffmpeg if we quit before it finished writing. Its exit status only
	// matters when it ran to completion.
	if !drained {
		cancel()
	}
	_, _ = io.Copy(io.Discard, reader)
	waitErr := cmd.Wait()

	if callbackErr != nil {
		return callbackErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if waitErr != nil && drained {
		return fmt.Errorf("video source: ffmpeg: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (s *FFmpegSource) frameArgs(opts ReadOptions) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-noautorotate", "-i", s.path, "-an", "-sn"}
	if opts.Stride > 1 {
		args = append(args, "-vf", "select=not(mod(n\\,"+strconv.Itoa(opts.Stride)+"))", "-fps_mode", "passthrough")
	}
	if opts.Limit > 0 {
		args = append(args, "-frames:v", strconv.Itoa(opts.Limit))
	}
	return append(args, "-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1")
}

func rgb24ToRGBA(buf []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i+2 < len(buf); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
