package transport

import (
	"context"
	"sync"
	"time"

	"github.com/bryanchriswhite/framerelay/internal/frame"
	"github.com/bryanchriswhite/framerelay/internal/imaging"
)

// cameraCursor selects which image the camera loop paints next. In live
// mode images flow through a FIFO, each drawn exactly once as it
// arrives. In non-live mode an owned image set is cycled indefinitely;
// installing a new image or sprite restarts the cycle.
type cameraCursor struct {
	live *fifo[*frame.Image]

	mu     sync.Mutex
	images []*frame.Image
	next   int
}

func newCameraCursor() *cameraCursor {
	return &cameraCursor{live: newFIFO[*frame.Image]()}
}

func (c *cameraCursor) setImage(img *frame.Image, isLive bool) {
	if isLive {
		c.live.push(img)
		return
	}
	c.setImages([]*frame.Image{img})
}

func (c *cameraCursor) setImages(images []*frame.Image) {
	c.mu.Lock()
	c.images = images
	c.next = 0
	c.mu.Unlock()
}

// nextCycled returns the next image of the cyclic set, wrapping
// indefinitely, or ok=false when no set is installed.
func (c *cameraCursor) nextCycled() (*frame.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.images) == 0 {
		return nil, false
	}
	img := c.images[c.next]
	c.next = (c.next + 1) % len(c.images)
	return img, true
}

// cameraLoop paints images onto the camera sink at the configured rate
// until the run context is cancelled.
func (o *Output) cameraLoop(ctx context.Context) {
	defer o.wg.Done()

	log := o.log.With().Str("loop", "camera").Logger()
	interval := time.Second / time.Duration(o.params.CameraOutFramerate)

	log.Debug().Dur("interval", interval).Bool("live", o.params.CameraOutIsLive).Msg("Camera loop started")

	for ctx.Err() == nil {
		if o.params.CameraOutIsLive {
			// Live images are paced by their producer, not by the
			// framerate.
			if img, ok := o.camera.live.pop(ctx, queuePollTimeout); ok {
				o.drawImage(img)
			}
			continue
		}

		if img, ok := o.camera.nextCycled(); ok {
			o.drawImage(img)
		}

		select {
		case <-ctx.Done():
		case <-time.After(interval):
		}
	}

	log.Debug().Msg("Camera loop stopped")
}

// drawImage rescales the image to the configured output geometry when
// needed and hands it to the camera sink. Failures are logged and the
// frame is skipped; the loop never dies on a bad frame.
func (o *Output) drawImage(img *frame.Image) {
	if img.Width != o.params.CameraOutWidth || img.Height != o.params.CameraOutHeight {
		o.log.Warn().
			Str("frame", img.Name()).
			Int("width", img.Width).
			Int("height", img.Height).
			Int("want_width", o.params.CameraOutWidth).
			Int("want_height", o.params.CameraOutHeight).
			Msg("Image does not have the expected size, resizing")

		resized, err := imaging.Resize(img, o.params.CameraOutWidth, o.params.CameraOutHeight)
		if err != nil {
			o.log.Error().Err(err).Str("frame", img.Name()).Msg("Error resizing image")
			return
		}
		img = resized
	}

	if err := o.sinks.Camera.WriteCameraFrame(img); err != nil {
		o.log.Error().Err(err).Str("frame", img.Name()).Msg("Error writing to camera")
		return
	}
	o.stats.cameraFramesDrawn.Add(1)
}
