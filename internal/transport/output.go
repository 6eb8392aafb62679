// Package transport implements the output side of a media pipeline
// transport: an ordered dispatcher that takes heterogeneous media and
// control frames and delivers them to physical sinks while preserving
// delivery order, keeping interruption latency bounded, and isolating
// per-frame failures.
package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/framerelay/internal/frame"
	"github.com/bryanchriswhite/framerelay/internal/logger"
	"github.com/bryanchriswhite/framerelay/internal/sink"
)

// queuePollTimeout bounds how long the worker loops block on an empty
// queue before re-checking for shutdown.
const queuePollTimeout = time.Second

// Params configure an output transport
type Params struct {
	AudioOutEnabled    bool
	AudioOutSampleRate int
	AudioOutChannels   int

	CameraOutEnabled   bool
	CameraOutIsLive    bool
	CameraOutWidth     int
	CameraOutHeight    int
	CameraOutFramerate int

	// AllowInterruptions gates the interruption controller; when false,
	// interruption frames are forwarded downstream but otherwise ignored.
	AllowInterruptions bool
}

// Output dispatches pipeline frames to sinks. Control frames are handled
// immediately; audio frames are chunked into 10 ms units and, together
// with all other frames, drained in strict FIFO order by a single sink
// loop. Frames the sink loop does not consume re-enter the downstream
// order through the push sequencer, the sole caller of the emit
// function.
type Output struct {
	params Params
	sinks  sink.Sinks
	emit   EmitFunc

	mu        sync.Mutex // guards lifecycle state
	started   bool
	running   bool
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
	stopped   chan struct{}

	sinkQueue *fifo[frame.Frame]
	camera    *cameraCursor

	interrupted atomic.Bool

	pushMu sync.Mutex
	push   *pushTask

	chunkSize int
	stats     Stats
	log       *zerolog.Logger
}

// New creates an output transport writing to the given sinks and
// emitting pass-through frames via emit. Nil sinks degrade to no-ops;
// a nil emit discards downstream frames.
func New(params Params, sinks sink.Sinks, emit EmitFunc) *Output {
	if emit == nil {
		emit = func(frame.Frame, frame.Direction) error { return nil }
	}

	o := &Output{
		params:    params,
		sinks:     sinks.WithDefaults(),
		emit:      emit,
		stopped:   make(chan struct{}),
		sinkQueue: newFIFO[frame.Frame](),
		camera:    newCameraCursor(),
		log:       logger.WithComponent("output-transport"),
	}

	if params.AudioOutEnabled {
		o.chunkSize = audioChunkSize(params.AudioOutSampleRate, params.AudioOutChannels)
	}
	if o.params.CameraOutEnabled && o.params.CameraOutFramerate <= 0 {
		o.params.CameraOutFramerate = 10
	}

	// The push sequencer exists from construction so control frames can
	// be forwarded before the transport is started.
	o.push = startPushTask(o.emit, &o.stats, o.log)

	return o
}

// Stats returns a snapshot of the transport counters
func (o *Output) Stats() StatsSnapshot {
	return o.stats.Snapshot()
}

// Running reports whether the worker loops are active
func (o *Output) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Start spawns the sink loop and, when camera output is enabled, the
// camera loop. It is idempotent while running; restarting a transport
// that has already stopped is an error.
func (o *Output) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil
	}
	if o.started {
		return fmt.Errorf("output transport already stopped")
	}
	o.started = true
	o.running = true

	ctx, cancel := context.WithCancel(context.Background())
	o.cancelRun = cancel

	o.wg.Add(1)
	go o.sinkLoop(ctx)

	if o.params.CameraOutEnabled {
		o.wg.Add(1)
		go o.cameraLoop(ctx)
	}

	go func() {
		o.wg.Wait()
		close(o.stopped)
	}()

	o.log.Info().
		Bool("audio_out", o.params.AudioOutEnabled).
		Bool("camera_out", o.params.CameraOutEnabled).
		Int("chunk_size", o.chunkSize).
		Msg("Output transport started")

	return nil
}

// Stop signals the worker loops to exit at their next polling
// checkpoint. It returns immediately; Cleanup waits for the loops to
// drain. Idempotent.
func (o *Output) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return nil
	}
	o.running = false
	o.cancelRun()

	o.log.Info().Msg("Output transport stopping")
	return nil
}

// Cleanup waits for the worker loops to exit and releases the push
// sequencer. Callers should Stop first (or deliver a Cancel/End frame,
// which does so).
func (o *Output) Cleanup() {
	o.mu.Lock()
	started := o.started
	o.mu.Unlock()

	if started {
		<-o.stopped
	}

	o.pushMu.Lock()
	push := o.push
	o.pushMu.Unlock()
	push.stop()
}

// Process dispatches one pipeline frame. Control and system frames are
// handled immediately, bypassing the ordering queues; audio is chunked
// and, like all remaining frames, enqueued for the sink loop. Process
// blocks until shutdown has completed when the frame is Cancel or End.
func (o *Output) Process(f frame.Frame, dir frame.Direction) error {
	o.stats.framesProcessed.Add(1)

	switch t := f.(type) {
	case *frame.Start:
		if err := o.Start(); err != nil {
			return err
		}
		o.pushDownstream(f, dir)
	case *frame.Cancel:
		if err := o.Stop(); err != nil {
			return err
		}
		o.pushDownstream(f, dir)
	case *frame.StartInterruption, *frame.StopInterruption:
		o.handleInterruption(f)
		o.pushDownstream(f, dir)
	case *frame.Audio:
		o.handleAudio(t)
	default:
		if frame.IsSystem(f) {
			// System frames must not wait behind buffered media.
			o.pushDownstream(f, dir)
		} else {
			o.sinkQueue.push(f)
		}
	}

	// Wait here until the workers have fully stopped, otherwise the
	// caller might tear things down while frames are still in flight.
	switch f.(type) {
	case *frame.Cancel, *frame.End:
		o.mu.Lock()
		started := o.started
		o.mu.Unlock()
		if started {
			<-o.stopped
		}
	}

	return nil
}

// SendAudioFrame routes an audio frame through the transport as if it
// had arrived from upstream.
func (o *Output) SendAudioFrame(f *frame.Audio) error {
	return o.Process(f, frame.Downstream)
}

// SendImageFrame routes an image or sprite frame through the transport
// as if it had arrived from upstream.
func (o *Output) SendImageFrame(f frame.Frame) error {
	switch f.(type) {
	case *frame.Image, *frame.Sprite:
		return o.Process(f, frame.Downstream)
	default:
		return fmt.Errorf("not an image frame: %s", f.Name())
	}
}

// Interrupted reports whether the transport is currently discarding
// media due to an interruption.
func (o *Output) Interrupted() bool {
	return o.interrupted.Load()
}

// Interrupt injects an interruption signal, as if the corresponding
// control frame had arrived from upstream.
func (o *Output) Interrupt(start bool) error {
	if start {
		return o.Process(frame.NewStartInterruption(), frame.Downstream)
	}
	return o.Process(frame.NewStopInterruption(), frame.Downstream)
}

// handleInterruption is the only mutator of the interrupted flag and of
// the push sequencer identity.
func (o *Output) handleInterruption(f frame.Frame) {
	if !o.params.AllowInterruptions {
		return
	}

	switch f.(type) {
	case *frame.StartInterruption:
		o.interrupted.Store(true)
		o.rotatePushTask()
		o.stats.interruptions.Add(1)
		o.log.Debug().Msg("Interruption started, push queue rotated")
	case *frame.StopInterruption:
		o.interrupted.Store(false)
		o.log.Debug().Msg("Interruption stopped")
	}
}

// rotatePushTask cancels the current push task and installs a fresh
// one. Anything still sitting in the old queue is abandoned, never
// delivered; this is the barge-in mechanism.
func (o *Output) rotatePushTask() {
	o.pushMu.Lock()
	old := o.push
	o.push = startPushTask(o.emit, &o.stats, o.log)
	o.pushMu.Unlock()

	old.cancel()
}

// pushDownstream hands a frame to the current push sequencer
// generation. Enqueueing is synchronous, which is what preserves the
// caller's position in the downstream order.
func (o *Output) pushDownstream(f frame.Frame, dir frame.Direction) {
	o.pushMu.Lock()
	push := o.push
	o.pushMu.Unlock()

	push.queue.push(pushItem{frame: f, direction: dir})
}

func (o *Output) handleAudio(f *frame.Audio) {
	for _, chunk := range chunkAudio(f, o.chunkSize) {
		o.sinkQueue.push(chunk)
	}
}

// sinkLoop is the single ordered consumer of the sink queue. Per-frame
// failures are logged and contained; the loop only exits when the run
// context is cancelled.
func (o *Output) sinkLoop(ctx context.Context) {
	defer o.wg.Done()

	log := o.log.With().Str("loop", "sink").Logger()
	log.Debug().Msg("Sink loop started")

	// Audio accumulation buffer; always shorter than one chunk after a
	// frame has been handled.
	var buffer []byte

	for ctx.Err() == nil {
		f, ok := o.sinkQueue.pop(ctx, queuePollTimeout)
		if !ok {
			continue
		}

		if !o.interrupted.Load() {
			buffer = o.handleSinkFrame(f, buffer)
		} else {
			// If we get interrupted just drop buffered audio.
			buffer = buffer[:0]
		}

		if _, isEnd := f.(*frame.End); isEnd {
			if err := o.Stop(); err != nil {
				log.Error().Err(err).Msg("Error stopping after End frame")
			}
		}
	}

	log.Debug().Msg("Sink loop stopped")
}

// handleSinkFrame performs the side effect a dequeued frame asks for
// and returns the updated audio accumulation buffer. Frames with no
// sink-side effect are forwarded to the push sequencer, which is how
// they regain their place in the downstream order.
func (o *Output) handleSinkFrame(f frame.Frame, buffer []byte) []byte {
	switch t := f.(type) {
	case *frame.Audio:
		if !o.params.AudioOutEnabled {
			o.pushDownstream(f, frame.Downstream)
			return buffer
		}
		buffer = append(buffer, t.Data...)
		return o.flushAudio(buffer)

	case *frame.Image:
		if !o.params.CameraOutEnabled {
			o.pushDownstream(f, frame.Downstream)
			return buffer
		}
		o.camera.setImage(t, o.params.CameraOutIsLive)

	case *frame.Sprite:
		if !o.params.CameraOutEnabled {
			o.pushDownstream(f, frame.Downstream)
			return buffer
		}
		o.camera.setImages(t.Images)

	case *frame.TransportMessage:
		if err := o.sinks.Message.SendMessage(t.Payload); err != nil {
			o.log.Error().Err(err).Str("frame", f.Name()).Msg("Error sending transport message")
		}

	case *frame.Metrics:
		if err := o.sinks.Metrics.SendMetrics(t.Payload); err != nil {
			o.log.Error().Err(err).Str("frame", f.Name()).Msg("Error sending metrics")
		}

	default:
		o.pushDownstream(f, frame.Downstream)
	}

	return buffer
}

// flushAudio writes whole chunks off the front of the buffer and
// returns the remainder. On a write error the unwritten bytes are
// retained for the next attempt; nothing is lost.
func (o *Output) flushAudio(buffer []byte) []byte {
	for len(buffer) >= o.chunkSize && o.chunkSize > 0 {
		if err := o.sinks.Audio.WriteAudioChunk(buffer[:o.chunkSize]); err != nil {
			o.log.Error().Err(err).Msg("Error writing audio to sink")
			return buffer
		}
		o.stats.audioChunksWritten.Add(1)
		buffer = buffer[o.chunkSize:]
	}
	return buffer
}
