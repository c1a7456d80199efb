// ABOUTME: FLAC file source
// ABOUTME: Decodes FLAC frames through mewkiz/flac and interleaves the subframes
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// flacStream is the part of flac.Stream the source needs
type flacStream interface {
	ParseNext() (*frame.Frame, error)
}

// FLACSource reads a FLAC stream frame by frame
type FLACSource struct {
	r        io.Reader
	stream   flacStream
	rate     int
	channels int
	bitDepth int
	title    string

	// decoded samples of the current frame not yet handed out
	pending []int16
}

// NewFLAC parses the FLAC stream info from r
func NewFLAC(r io.Reader, title string) (*FLACSource, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &FLACSource{
		r:        r,
		stream:   stream,
		rate:     int(info.SampleRate),
		channels: int(info.NChannels),
		bitDepth: int(info.BitsPerSample),
		title:    title,
	}, nil
}

func (s *FLACSource) Read(samples []int16) (int, error) {
	channels := max(s.channels, 1)
	want := len(samples) - len(samples)%channels

	n := 0
	for n < want {
		if len(s.pending) == 0 {
			if err := s.next(); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return n, err
			}
		}
		k := copy(samples[n:want], s.pending)
		s.pending = s.pending[k:]
		n += k
	}

	if n == 0 && want > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// next decodes one frame into pending
func (s *FLACSource) next() error {
	f, err := s.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("flac decode error: %w", err)
	}

	size := int(f.BlockSize) * s.channels
	if cap(s.pending) < size {
		s.pending = make([]int16, size)
	}
	s.pending = s.pending[:size]

	for i := 0; i < int(f.BlockSize); i++ {
		for ch := 0; ch < s.channels; ch++ {
			s.pending[i*s.channels+ch] = scaleTo16(f.Subframes[ch].Samples[i], s.bitDepth)
		}
	}
	return nil
}

func (s *FLACSource) SampleRate() int { return s.rate }
func (s *FLACSource) Channels() int   { return s.channels }
func (s *FLACSource) Title() string   { return s.title }
func (s *FLACSource) Close() error    { return closeIfCloser(s.r) }
