// ABOUTME: Headerless s16le PCM source
// ABOUTME: Reads raw interleaved stereo bytes at a caller-given rate
package decode

import (
	"errors"
	"io"

	"github.com/glebpom/shairport/pkg/audio"
)

// PCMSource reads raw interleaved s16le stereo
type PCMSource struct {
	r          io.Reader
	sampleRate int
	title      string
	buf        []byte
}

// NewPCM wraps r as a stereo 16-bit stream at sampleRate
func NewPCM(r io.Reader, sampleRate int, title string) *PCMSource {
	return &PCMSource{r: r, sampleRate: sampleRate, title: title}
}

func (s *PCMSource) Read(samples []int16) (int, error) {
	want := len(samples) - len(samples)%audio.Channels
	if want == 0 {
		return 0, nil
	}

	size := want * audio.BytesPerSample
	if cap(s.buf) < size {
		s.buf = make([]byte, size)
	}
	buf := s.buf[:size]

	n, err := io.ReadFull(s.r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, err
	}

	n -= n % audio.BytesPerFrame
	if n == 0 {
		return 0, io.EOF
	}
	return audio.BytesToInt16(samples, buf[:n]), nil
}

func (s *PCMSource) SampleRate() int { return s.sampleRate }
func (s *PCMSource) Channels() int   { return audio.Channels }
func (s *PCMSource) Title() string   { return s.title }
func (s *PCMSource) Close() error    { return closeIfCloser(s.r) }
