// Package imaging converts raw image frames to and from the standard
// library image types and rescales them to a sink's output geometry.
package imaging

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/bryanchriswhite/framerelay/internal/frame"
)

// ToRGBA wraps a raw image frame's pixels in an *image.RGBA without
// copying them.
func ToRGBA(f *frame.Image) (*image.RGBA, error) {
	if f.Format != frame.FormatRGBA {
		return nil, fmt.Errorf("unsupported image format %q", f.Format)
	}
	if want := f.Width * f.Height * 4; len(f.Data) != want {
		return nil, fmt.Errorf("image payload is %d bytes, want %d for %dx%d RGBA",
			len(f.Data), want, f.Width, f.Height)
	}

	return &image.RGBA{
		Pix:    f.Data,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}, nil
}

// FromRGBA builds a raw image frame from an *image.RGBA. The pixel data
// is copied when the image does not start at the origin or has padding
// between rows.
func FromRGBA(img *image.RGBA) *frame.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	pix := img.Pix
	if bounds.Min != (image.Point{}) || img.Stride != width*4 {
		tight := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.Copy(tight, image.Point{}, img, bounds, xdraw.Src, nil)
		pix = tight.Pix
	}

	return frame.NewImage(pix, width, height, frame.FormatRGBA)
}

// Resize scales a raw image frame to the given dimensions.
func Resize(f *frame.Image, width, height int) (*frame.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	src, err := ToRGBA(f)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	return FromRGBA(dst), nil
}
