package transport

import (
	"github.com/bryanchriswhite/framerelay/internal/frame"
)

// PCM sample width in bytes (s16le)
const bytesPerSample = 2

// audioChunkSize returns the byte length of 10 ms of audio, the smallest
// unit the transport writes to the audio sink. Small units cap the
// latency between an interruption and the sink falling silent.
func audioChunkSize(sampleRate, channels int) int {
	return sampleRate / 100 * channels * bytesPerSample
}

// chunkAudio splits an audio frame into consecutive chunkSize-byte audio
// frames carrying the original sample rate and channel count. A short
// final remainder is emitted as its own chunk, not dropped or padded.
func chunkAudio(f *frame.Audio, chunkSize int) []*frame.Audio {
	if len(f.Data) == 0 {
		return nil
	}
	if chunkSize <= 0 || len(f.Data) <= chunkSize {
		return []*frame.Audio{f}
	}

	chunks := make([]*frame.Audio, 0, (len(f.Data)+chunkSize-1)/chunkSize)
	for i := 0; i < len(f.Data); i += chunkSize {
		end := i + chunkSize
		if end > len(f.Data) {
			end = len(f.Data)
		}
		chunks = append(chunks, frame.NewAudio(f.Data[i:end], f.SampleRate, f.Channels))
	}
	return chunks
}
