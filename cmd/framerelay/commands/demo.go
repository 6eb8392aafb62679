package commands

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/bryanchriswhite/framerelay/internal/config"
	"github.com/bryanchriswhite/framerelay/internal/frame"
	"github.com/bryanchriswhite/framerelay/internal/logger"
	"github.com/bryanchriswhite/framerelay/internal/transport"
)

const (
	demoToneHz    = 440.0
	demoBatchSize = 20 * time.Millisecond
)

// runDemoSource feeds the transport with a continuous sine tone and a
// cycling test-card sprite so the stream endpoint has something to show
// without a real pipeline upstream.
func runDemoSource(ctx context.Context, output *transport.Output, cfg config.TransportConfig) {
	log := logger.WithComponent("demo")

	if cfg.CameraOutEnabled {
		sprite := frame.NewSprite(testCardImages(cfg.CameraOutWidth, cfg.CameraOutHeight))
		if err := output.SendImageFrame(sprite); err != nil {
			log.Error().Err(err).Msg("Failed to send test card")
		}
	}
	if !cfg.AudioOutEnabled {
		<-ctx.Done()
		return
	}

	samplesPerBatch := cfg.AudioOutSampleRate * int(demoBatchSize/time.Millisecond) / 1000
	phase := 0.0
	step := 2 * math.Pi * demoToneHz / float64(cfg.AudioOutSampleRate)

	ticker := time.NewTicker(demoBatchSize)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		data := make([]byte, 0, samplesPerBatch*cfg.AudioOutChannels*2)
		for i := 0; i < samplesPerBatch; i++ {
			sample := int16(math.Sin(phase) * 0.2 * math.MaxInt16)
			phase += step
			for ch := 0; ch < cfg.AudioOutChannels; ch++ {
				data = binary.LittleEndian.AppendUint16(data, uint16(sample))
			}
		}
		if phase > 2*math.Pi {
			phase -= 2 * math.Pi
		}

		audio := frame.NewAudio(data, cfg.AudioOutSampleRate, cfg.AudioOutChannels)
		if err := output.SendAudioFrame(audio); err != nil {
			log.Error().Err(err).Msg("Failed to send audio batch")
			return
		}
	}
}

// testCardImages renders a handful of solid-color RGBA frames for the
// cyclic camera output.
func testCardImages(width, height int) []*frame.Image {
	colors := [][4]byte{
		{0xc0, 0x30, 0x30, 0xff},
		{0x30, 0xc0, 0x30, 0xff},
		{0x30, 0x30, 0xc0, 0xff},
		{0xc0, 0xc0, 0x30, 0xff},
	}
	images := make([]*frame.Image, 0, len(colors))
	for _, c := range colors {
		data := make([]byte, width*height*4)
		for i := 0; i < len(data); i += 4 {
			copy(data[i:], c[:])
		}
		images = append(images, frame.NewImage(data, width, height, frame.FormatRGBA))
	}
	return images
}
