package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/bryanchriswhite/framerelay/internal/frame"
)

var errSinkWrite = errors.New("sink write failed")

// emitRecorder records frames pushed downstream. An optional gate
// makes every emit block until the gate channel is closed.
type emitRecorder struct {
	mu     sync.Mutex
	frames []frame.Frame
	dirs   []frame.Direction
	gate   chan struct{}
}

func (r *emitRecorder) emit(f frame.Frame, dir frame.Direction) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.dirs = append(r.dirs, dir)
	r.mu.Unlock()
	return nil
}

func (r *emitRecorder) emitted() []frame.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]frame.Frame(nil), r.frames...)
}

func (r *emitRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.frames))
	for i, f := range r.frames {
		names[i] = f.Name()
	}
	return names
}

// sinkRecorder implements all four collaborator contracts, recording
// every call in arrival order.
type sinkRecorder struct {
	mu       sync.Mutex
	events   []string
	chunks   [][]byte
	images   []*frame.Image
	messages []any
	metrics  []any

	audioErrs  int           // number of leading WriteAudioChunk calls that fail
	audioDelay time.Duration // applied to each successful audio write
}

func (r *sinkRecorder) WriteAudioChunk(chunk []byte) error {
	r.mu.Lock()
	if r.audioErrs > 0 {
		r.audioErrs--
		r.mu.Unlock()
		return errSinkWrite
	}
	delay := r.audioDelay
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, append([]byte(nil), chunk...))
	r.events = append(r.events, "audio")
	return nil
}

func (r *sinkRecorder) WriteCameraFrame(img *frame.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = append(r.images, img)
	r.events = append(r.events, "camera")
	return nil
}

func (r *sinkRecorder) SendMessage(payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, payload)
	r.events = append(r.events, "message")
	return nil
}

func (r *sinkRecorder) SendMetrics(payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, payload)
	r.events = append(r.events, "metrics")
	return nil
}

func (r *sinkRecorder) eventLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *sinkRecorder) writtenChunks() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.chunks...)
}

func (r *sinkRecorder) writtenImages() []*frame.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*frame.Image(nil), r.images...)
}

// waitFor polls cond every millisecond until it returns true or the
// timeout elapses.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
