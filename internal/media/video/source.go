package video

import (
	"context"
	"errors"
	"image"
)

// Kinds of frame source.
const (
	KindVideo  = "video"
	KindImages = "images"
)

// ErrStop is returned by a frame callback to end iteration without error.
var ErrStop = errors.New("stop frame iteration")

// Info describes a source as far as it can be determined without decoding
// every frame. Zero values mean unknown.
type Info struct {
	Kind            string  `json:"kind"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FPS             float64 `json:"fps"`
	FrameCount      int     `json:"frame_count"`
	DurationSeconds float64 `json:"duration_sec"`
}

// Frame is one decoded picture and its position in the source.
type Frame struct {
	Index int
	Image image.Image
}

// ReadOptions selects which frames a source delivers.
type ReadOptions struct {
	// Stride delivers every Stride-th frame starting at index 0.
	Stride int
	// Limit caps the number of delivered frames; zero means no cap.
	Limit int
}

func (o ReadOptions) normalized() ReadOptions {
	if o.Stride < 1 {
		o.Stride = 1
	}
	if o.Limit < 0 {
		o.Limit = 0
	}
	return o
}

// Source yields decoded frames sequentially. Implementations must be safe to
// read more than once.
type Source interface {
	// Info returns metadata; an error means the source is unreadable.
	Info(ctx context.Context) (Info, error)
	// Frames decodes frames in order and invokes fn for each selected one.
	// Returning ErrStop from fn ends iteration and Frames returns nil.
	Frames(ctx context.Context, opts ReadOptions, fn func(Frame) error) error
}

// MemorySource serves frames already held in memory. It reports itself as a
// video with the supplied frame rate.
type MemorySource struct {
	images []image.Image
	fps    float64
}

// NewMemorySource wraps decoded frames. fps <= 0 leaves the rate unknown.
func NewMemorySource(images []image.Image, fps float64) *MemorySource {
	return &MemorySource{images: append([]image.Image(nil), images...), fps: fps}
}

// Info implements Source.
func (m *MemorySource) Info(context.Context) (Info, error) {
	if len(m.images) == 0 {
		return Info{}, errors.New("memory source: no frames")
	}
	bounds := m.images[0].Bounds()
	info := Info{
		Kind:       KindVideo,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		FPS:        m.fps,
		FrameCount: len(m.images),
	}
	if m.fps > 0 {
		info.DurationSeconds = float64(len(m.images)) / m.fps
	}
	return info, nil
}

// Frames implements Source.
func (m *MemorySource) Frames(ctx context.Context, opts ReadOptions, fn func(Frame) error) error {
	opts = opts.normalized()
	delivered := 0
	for idx := 0; idx < len(m.images); idx += opts.Stride {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(Frame{Index: idx, Image: m.images[idx]}); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
		delivered++
		if opts.Limit > 0 && delivered >= opts.Limit {
			return nil
		}
	}
	return nil
}
