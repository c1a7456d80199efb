// ABOUTME: Encoder interface definition
// ABOUTME: Common interface and codec lookup for stream encoders
package encode

import (
	"errors"
	"fmt"

	"github.com/glebpom/shairport/pkg/audio"
)

// ErrUnsupportedCodec is returned for codecs without an encoder
var ErrUnsupportedCodec = errors.New("unsupported codec")

// Encoder encodes interleaved int16 samples into one stream payload
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []int16) ([]byte, error)

	// FrameSize is the number of frames one payload must hold, or 0 for any
	FrameSize() int

	// Close releases encoder resources
	Close() error
}

// New creates an encoder for codec ("pcm" or "opus")
func New(codec string, format audio.Format) (Encoder, error) {
	switch codec {
	case "pcm", "":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, codec)
	}
}
