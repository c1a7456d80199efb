// ABOUTME: Opus packet decoder for network receivers
// ABOUTME: Decodes one Opus packet per call into interleaved int16 samples
package decode

import (
	"fmt"

	"github.com/glebpom/shairport/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is the largest Opus frame, 120ms at 48kHz
const maxOpusFrame = 5760

// OpusDecoder decodes Opus packets
type OpusDecoder struct {
	decoder  *opus.Decoder
	channels int
	pcm      []int16
}

// NewOpus creates an Opus decoder. libopus only decodes at 8, 12, 16, 24
// or 48 kHz.
func NewOpus(format audio.Format) (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder:  dec,
		channels: format.Channels,
		pcm:      make([]int16, maxOpusFrame*format.Channels),
	}, nil
}

// Decode converts one Opus packet to samples. The returned slice is
// reused by the next call.
func (d *OpusDecoder) Decode(data []byte) ([]int16, error) {
	n, err := d.decoder.Decode(data, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}
	return d.pcm[:n*d.channels], nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}

// NewDecoder creates a packet decoder for codec. Only "opus" needs one;
// "pcm" packets are written to the output as they are.
func NewDecoder(codec string, format audio.Format) (Decoder, error) {
	switch codec {
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("%w: codec %q", ErrUnsupportedFormat, codec)
	}
}
