package frame

import (
	"fmt"

	"github.com/google/uuid"
)

// Direction indicates which way a frame is travelling through the pipeline.
type Direction int

const (
	Upstream Direction = iota
	Downstream
)

func (d Direction) String() string {
	switch d {
	case Upstream:
		return "upstream"
	case Downstream:
		return "downstream"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Frame is a discrete unit of media or control information. Frames are
// immutable once constructed; media payloads are owned by the frame until
// a sink consumes them.
type Frame interface {
	// ID returns the frame's unique identifier
	ID() string

	// Name returns a human-readable frame name for logging
	Name() string
}

// Base carries the identity shared by all frame kinds. Embed it to
// define new frame kinds outside this package.
type Base struct {
	id   string
	name string
}

// NewBase creates the identity for a new frame of the given kind
func NewBase(name string) Base {
	return Base{id: uuid.NewString(), name: name}
}

func newBase(name string) Base { return NewBase(name) }

func (b Base) ID() string   { return b.id }
func (b Base) Name() string { return b.name }

func (b Base) String() string {
	return fmt.Sprintf("%s(%s)", b.name, b.id[:8])
}

// Start signals the pipeline to begin running.
type Start struct{ Base }

func NewStart() *Start { return &Start{newBase("Start")} }

// End signals an orderly end of the stream. Unlike Cancel it travels
// through the ordering queues so buffered media drains first.
type End struct{ Base }

func NewEnd() *End { return &End{newBase("End")} }

// Cancel aborts the stream immediately, skipping any buffered media.
type Cancel struct{ Base }

func NewCancel() *Cancel { return &Cancel{newBase("Cancel")} }

// StartInterruption signals that in-flight output should be halted,
// typically because the user started speaking.
type StartInterruption struct{ Base }

func NewStartInterruption() *StartInterruption {
	return &StartInterruption{newBase("StartInterruption")}
}

// StopInterruption signals that normal output may resume.
type StopInterruption struct{ Base }

func NewStopInterruption() *StopInterruption {
	return &StopInterruption{newBase("StopInterruption")}
}

// System is an out-of-band control frame carrying an opaque payload.
type System struct {
	Base
	Payload any
}

func NewSystem(payload any) *System {
	return &System{Base: newBase("System"), Payload: payload}
}

// FormatRGBA is the pixel format of raw image payloads: 8-bit RGBA,
// row-major, 4 bytes per pixel.
const FormatRGBA = "RGBA"

// Audio carries raw PCM samples (s16le interleaved).
type Audio struct {
	Base
	Data       []byte
	SampleRate int
	Channels   int
}

func NewAudio(data []byte, sampleRate, channels int) *Audio {
	return &Audio{
		Base:       newBase("Audio"),
		Data:       data,
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Image carries one raw video frame.
type Image struct {
	Base
	Data   []byte
	Width  int
	Height int
	Format string
}

func NewImage(data []byte, width, height int, format string) *Image {
	return &Image{
		Base:   newBase("Image"),
		Data:   data,
		Width:  width,
		Height: height,
		Format: format,
	}
}

// Sprite is an ordered set of images to be cycled onto the camera sink.
type Sprite struct {
	Base
	Images []*Image
}

func NewSprite(images []*Image) *Sprite {
	return &Sprite{Base: newBase("Sprite"), Images: images}
}

// TransportMessage is an opaque payload destined for the transport's
// message channel.
type TransportMessage struct {
	Base
	Payload any
}

func NewTransportMessage(payload any) *TransportMessage {
	return &TransportMessage{Base: newBase("TransportMessage"), Payload: payload}
}

// Metrics is an opaque metrics payload destined for the transport's
// metrics channel.
type Metrics struct {
	Base
	Payload any
}

func NewMetrics(payload any) *Metrics {
	return &Metrics{Base: newBase("Metrics"), Payload: payload}
}

// IsSystem reports whether f is a control/system frame that must bypass
// the ordering queues. End is deliberately not a system frame: it drains
// through the sink queue so buffered media is flushed first.
func IsSystem(f Frame) bool {
	switch f.(type) {
	case *Start, *Cancel, *StartInterruption, *StopInterruption, *System:
		return true
	default:
		return false
	}
}
