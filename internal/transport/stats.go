package transport

import "sync/atomic"

// Stats tracks output transport counters. All fields are safe for
// concurrent use.
type Stats struct {
	framesProcessed    atomic.Int64
	audioChunksWritten atomic.Int64
	cameraFramesDrawn  atomic.Int64
	framesEmitted      atomic.Int64
	framesDiscarded    atomic.Int64
	interruptions      atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the transport counters
type StatsSnapshot struct {
	FramesProcessed    int64 `json:"frames_processed"`
	AudioChunksWritten int64 `json:"audio_chunks_written"`
	CameraFramesDrawn  int64 `json:"camera_frames_drawn"`
	FramesEmitted      int64 `json:"frames_emitted"`
	FramesDiscarded    int64 `json:"frames_discarded"`
	Interruptions      int64 `json:"interruptions"`
}

// Snapshot returns a copy of the current counters
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FramesProcessed:    s.framesProcessed.Load(),
		AudioChunksWritten: s.audioChunksWritten.Load(),
		CameraFramesDrawn:  s.cameraFramesDrawn.Load(),
		FramesEmitted:      s.framesEmitted.Load(),
		FramesDiscarded:    s.framesDiscarded.Load(),
		Interruptions:      s.interruptions.Load(),
	}
}
