package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/framerelay/internal/frame"
)

func solidFrame(width, height int, c color.RGBA) *frame.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return FromRGBA(img)
}

func TestResizeDimensions(t *testing.T) {
	src := solidFrame(64, 48, color.RGBA{R: 200, A: 255})

	dst, err := Resize(src, 32, 24)
	require.NoError(t, err)

	assert.Equal(t, 32, dst.Width)
	assert.Equal(t, 24, dst.Height)
	assert.Equal(t, frame.FormatRGBA, dst.Format)
	assert.Len(t, dst.Data, 32*24*4)
}

func TestResizePreservesSolidColor(t *testing.T) {
	src := solidFrame(16, 16, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	dst, err := Resize(src, 8, 8)
	require.NoError(t, err)

	rgba, err := ToRGBA(dst)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, rgba.RGBAAt(4, 4))
}

func TestToRGBARejectsBadPayload(t *testing.T) {
	f := frame.NewImage(make([]byte, 10), 4, 4, frame.FormatRGBA)
	_, err := ToRGBA(f)
	require.Error(t, err)

	f = frame.NewImage(make([]byte, 4*4*4), 4, 4, "YUV420")
	_, err = ToRGBA(f)
	require.Error(t, err)
}

func TestResizeRejectsInvalidTarget(t *testing.T) {
	src := solidFrame(4, 4, color.RGBA{A: 255})
	_, err := Resize(src, 0, 10)
	require.Error(t, err)
}

func TestFromRGBACopiesSubImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.SetRGBA(5, 5, color.RGBA{R: 255, A: 255})

	sub := img.SubImage(image.Rect(4, 4, 8, 8)).(*image.RGBA)
	f := FromRGBA(sub)

	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 4, f.Height)

	rgba, err := ToRGBA(f)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgba.RGBAAt(1, 1))
}
