// ABOUTME: Ogg Vorbis file source
// ABOUTME: Decodes Vorbis through jfreymuth/oggvorbis and quantizes to int16
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/glebpom/shairport/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

// oggReader is the part of oggvorbis.Reader the source needs
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

// VorbisSource reads an Ogg Vorbis stream
type VorbisSource struct {
	r     io.Reader
	dec   oggReader
	title string
	buf   []float32
}

// NewVorbis creates an Ogg Vorbis source from r
func NewVorbis(r io.Reader, title string) (*VorbisSource, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}
	return &VorbisSource{r: r, dec: dec, title: title}, nil
}

func (s *VorbisSource) Read(samples []int16) (int, error) {
	channels := max(s.dec.Channels(), 1)
	want := len(samples) - len(samples)%channels
	if want == 0 {
		return 0, nil
	}

	if cap(s.buf) < want {
		s.buf = make([]float32, want)
	}
	buf := s.buf[:want]

	n, err := s.dec.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("vorbis decode error: %w", err)
	}

	n -= n % channels
	if n == 0 {
		return 0, io.EOF
	}
	for i, v := range buf[:n] {
		samples[i] = audio.FloatToSample(v)
	}
	return n, nil
}

func (s *VorbisSource) SampleRate() int { return s.dec.SampleRate() }
func (s *VorbisSource) Channels() int   { return s.dec.Channels() }
func (s *VorbisSource) Title() string   { return s.title }
func (s *VorbisSource) Close() error    { return closeIfCloser(s.r) }
