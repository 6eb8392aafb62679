package transport

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/framerelay/internal/frame"
)

// EmitFunc delivers a frame to the next element of the surrounding
// pipeline. It is only ever invoked from the current push task, which
// serializes all downstream emissions into a single global order.
type EmitFunc func(f frame.Frame, dir frame.Direction) error

type pushItem struct {
	frame     frame.Frame
	direction frame.Direction
}

// pushTask is one generation of the push sequencer: a queue and the
// single goroutine draining it. An interruption cancels the task and
// installs a fresh one; whatever the abandoned queue still holds is
// never delivered.
type pushTask struct {
	queue  *fifo[pushItem]
	cancel context.CancelFunc
	done   chan struct{}
}

func startPushTask(emit EmitFunc, stats *Stats, log *zerolog.Logger) *pushTask {
	ctx, cancel := context.WithCancel(context.Background())
	t := &pushTask{
		queue:  newFIFO[pushItem](),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.run(ctx, emit, stats, log)
	return t
}

func (t *pushTask) run(ctx context.Context, emit EmitFunc, stats *Stats, log *zerolog.Logger) {
	defer close(t.done)

	for {
		item, ok := t.queue.pop(ctx, time.Second)
		if ctx.Err() != nil {
			if pending := t.queue.len(); pending > 0 || ok {
				discarded := int64(pending)
				if ok {
					discarded++
				}
				stats.framesDiscarded.Add(discarded)
				log.Debug().Int64("discarded", discarded).Msg("Push task cancelled, abandoning queue")
			}
			return
		}
		if !ok {
			continue
		}

		if err := emit(item.frame, item.direction); err != nil {
			log.Error().Err(err).
				Str("frame", item.frame.Name()).
				Stringer("direction", item.direction).
				Msg("Error pushing frame downstream")
			continue
		}
		stats.framesEmitted.Add(1)
	}
}

// stop cancels the task and waits for its goroutine to exit
func (t *pushTask) stop() {
	t.cancel()
	<-t.done
}
