package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// OpenImage decodes a still from disk applying EXIF orientation. JPEG, PNG,
// GIF, BMP, TIFF, and WebP are supported.
func OpenImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return img, nil
}

// ImageSource treats an ordered list of stills as a frame sequence. Stills
// that cannot be decoded are skipped.
type ImageSource struct {
	paths []string
}

// NewImageSource returns a source over the given still paths.
func NewImageSource(paths []string) *ImageSource {
	return &ImageSource{paths: append([]string(nil), paths...)}
}

// Info implements Source. Dimensions come from the first readable still.
func (s *ImageSource) Info(context.Context) (Info, error) {
	if len(s.paths) == 0 {
		return Info{}, errors.New("image source: no images")
	}
	for _, path := range s.paths {
		file, err := os.Open(path)
		if err != nil {
			continue
		}
		cfg, _, err := image.DecodeConfig(file)
		file.Close()
		if err != nil {
			continue
		}
		return Info{Kind: KindImages, Width: cfg.Width, Height: cfg.Height, FrameCount: len(s.paths)}, nil
	}
	return Info{}, fmt.Errorf("image source: none of %d images are readable", len(s.paths))
}

// Frames implements Source.
func (s *ImageSource) Frames(ctx context.Context, opts ReadOptions, fn func(Frame) error) error {
	opts = opts.normalized()
	delivered := 0
	for idx := 0; idx < len(s.paths); idx += opts.Stride {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := OpenImage(s.paths[idx])
		if err != nil {
			continue
		}
		if err := fn(Frame{Index: idx, Image: img}); err != nil {
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
