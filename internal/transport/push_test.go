package transport

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/framerelay/internal/frame"
	"github.com/bryanchriswhite/framerelay/internal/logger"
)

func TestPushTaskEmitsInOrder(t *testing.T) {
	rec := &emitRecorder{}
	var stats Stats
	task := startPushTask(rec.emit, &stats, logger.WithComponent("test"))
	defer task.stop()

	frames := []frame.Frame{
		frame.NewTransportMessage("a"),
		frame.NewMetrics("b"),
		frame.NewEnd(),
	}
	for _, f := range frames {
		task.queue.push(pushItem{frame: f, direction: frame.Downstream})
	}

	require.True(t, waitFor(2*time.Second, func() bool { return len(rec.emitted()) == len(frames) }))

	got := rec.emitted()
	for i, f := range frames {
		assert.Equal(t, f.ID(), got[i].ID(), "frame %d out of order", i)
	}
	assert.Equal(t, int64(len(frames)), stats.Snapshot().FramesEmitted)
}

func TestPushTaskStopAbandonsQueue(t *testing.T) {
	rec := &emitRecorder{gate: make(chan struct{})}
	var stats Stats
	task := startPushTask(rec.emit, &stats, logger.WithComponent("test"))

	// First frame is picked up and blocks inside emit; the rest stay
	// queued behind it.
	for i := 0; i < 5; i++ {
		task.queue.push(pushItem{frame: frame.NewMetrics(i), direction: frame.Downstream})
	}

	// Give the task time to start emitting the head frame.
	time.Sleep(20 * time.Millisecond)

	task.cancel()
	close(rec.gate)
	<-task.done

	// Only the in-flight head frame may have been delivered.
	assert.LessOrEqual(t, len(rec.emitted()), 1)
	assert.GreaterOrEqual(t, stats.Snapshot().FramesDiscarded, int64(4))
}

func TestPushTaskSurvivesEmitErrors(t *testing.T) {
	var calls atomic.Int32
	emit := func(f frame.Frame, dir frame.Direction) error {
		if calls.Add(1) == 1 {
			return errSinkWrite
		}
		return nil
	}

	var stats Stats
	task := startPushTask(emit, &stats, logger.WithComponent("test"))
	defer task.stop()

	task.queue.push(pushItem{frame: frame.NewMetrics(1), direction: frame.Downstream})
	task.queue.push(pushItem{frame: frame.NewMetrics(2), direction: frame.Downstream})

	require.True(t, waitFor(2*time.Second, func() bool { return calls.Load() == 2 }))
	assert.Equal(t, int64(1), stats.Snapshot().FramesEmitted)
}
