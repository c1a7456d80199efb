// ABOUTME: PCM audio encoder
// ABOUTME: Encodes int16 samples to s16le bytes
package encode

import (
	"fmt"

	"github.com/glebpom/shairport/pkg/audio"
)

// PCMEncoder encodes s16le PCM
type PCMEncoder struct {
	buf []byte
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (*PCMEncoder, error) {
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate for PCM encoder: %d", format.SampleRate)
	}
	if err := format.Validate(format.SampleRate); err != nil {
		return nil, fmt.Errorf("invalid format for PCM encoder: %w", err)
	}
	return &PCMEncoder{}, nil
}

// Encode converts samples to little-endian bytes. Only whole frames are
// encoded. The returned slice is reused by the next call.
func (e *PCMEncoder) Encode(samples []int16) ([]byte, error) {
	samples = samples[:len(samples)-len(samples)%audio.Channels]

	size := len(samples) * audio.BytesPerSample
	if cap(e.buf) < size {
		e.buf = make([]byte, size)
	}
	out := e.buf[:size]
	audio.Int16ToBytes(out, samples)
	return out, nil
}

// FrameSize returns 0; PCM payloads may hold any number of frames
func (e *PCMEncoder) FrameSize() int {
	return 0
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
