package sink

import (
	"github.com/bryanchriswhite/framerelay/internal/frame"
)

// AudioSink receives fixed-duration PCM chunks. The chunk slice is only
// valid for the duration of the call; implementations must copy it if
// they keep it.
type AudioSink interface {
	WriteAudioChunk(chunk []byte) error
}

// CameraSink receives one image per call, already scaled to the
// configured output geometry.
type CameraSink interface {
	WriteCameraFrame(img *frame.Image) error
}

// MessageSink passes opaque payloads through to an underlying
// connection's message channel.
type MessageSink interface {
	SendMessage(payload any) error
}

// MetricsSink passes opaque metrics payloads through to an underlying
// connection.
type MetricsSink interface {
	SendMetrics(payload any) error
}

// Sinks bundles the collaborator endpoints an output transport writes
// to. Nil fields behave as no-ops.
type Sinks struct {
	Audio   AudioSink
	Camera  CameraSink
	Message MessageSink
	Metrics MetricsSink
}

// WithDefaults returns a copy of s with nil fields replaced by no-op
// implementations.
func (s Sinks) WithDefaults() Sinks {
	if s.Audio == nil {
		s.Audio = nopSink{}
	}
	if s.Camera == nil {
		s.Camera = nopSink{}
	}
	if s.Message == nil {
		s.Message = nopSink{}
	}
	if s.Metrics == nil {
		s.Metrics = nopSink{}
	}
	return s
}

type nopSink struct{}

func (nopSink) WriteAudioChunk([]byte) error            { return nil }
func (nopSink) WriteCameraFrame(*frame.Image) error     { return nil }
func (nopSink) SendMessage(any) error                   { return nil }
func (nopSink) SendMetrics(any) error                   { return nil }
