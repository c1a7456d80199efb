// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms int16 frames into Opus packets
package encode

import (
	"fmt"

	"github.com/glebpom/shairport/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxPacket is the largest Opus packet libopus produces
const maxPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder   *opus.Encoder
	channels  int
	frameSize int
	data      []byte
}

// NewOpus creates a new Opus encoder. The bridge decodes Opus at its own
// rate, so only 48 kHz stereo is accepted.
func NewOpus(format audio.Format) (*OpusEncoder, error) {
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate for Opus encoder: %d", format.SampleRate)
	}
	if err := format.Validate(format.SampleRate); err != nil {
		return nil, fmt.Errorf("invalid format for Opus encoder: %w", err)
	}
	if format.SampleRate != 48000 {
		return nil, fmt.Errorf("%w: opus needs 48000 Hz, got %d", ErrUnsupportedCodec, format.SampleRate)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:   encoder,
		channels:  format.Channels,
		frameSize: format.SampleRate / 50, // 20ms frame
		data:      make([]byte, maxPacket),
	}, nil
}

// Encode converts exactly FrameSize frames to one Opus packet. The
// returned slice is reused by the next call.
func (e *OpusEncoder) Encode(samples []int16) ([]byte, error) {
	if len(samples) != e.frameSize*e.channels {
		return nil, fmt.Errorf("opus encode needs %d samples, got %d", e.frameSize*e.channels, len(samples))
	}

	n, err := e.encoder.Encode(samples, e.data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}
	return e.data[:n], nil
}

// FrameSize returns the frames per packet
func (e *OpusEncoder) FrameSize() int {
	return e.frameSize
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
