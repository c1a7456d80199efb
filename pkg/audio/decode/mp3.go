// ABOUTME: MP3 file source
// ABOUTME: Decodes MP3 through go-mp3, which always yields 16-bit stereo
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/glebpom/shairport/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// mp3Reader is the part of mp3.Decoder the source needs
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// MP3Source reads an MP3 stream
type MP3Source struct {
	r     io.Reader
	dec   mp3Reader
	title string
	buf   []byte
}

// NewMP3 creates an MP3 source from r
func NewMP3(r io.Reader, title string) (*MP3Source, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	return &MP3Source{r: r, dec: dec, title: title}, nil
}

func (s *MP3Source) Read(samples []int16) (int, error) {
	want := len(samples) - len(samples)%audio.Channels
	if want == 0 {
		return 0, nil
	}

	size := want * audio.BytesPerSample
	if cap(s.buf) < size {
		s.buf = make([]byte, size)
	}
	buf := s.buf[:size]

	n, err := io.ReadFull(s.dec, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	n -= n % audio.BytesPerFrame
	if n == 0 {
		return 0, io.EOF
	}
	return audio.BytesToInt16(samples, buf[:n]), nil
}

func (s *MP3Source) SampleRate() int { return s.dec.SampleRate() }
func (s *MP3Source) Channels() int   { return audio.Channels }
func (s *MP3Source) Title() string   { return s.title }
func (s *MP3Source) Close() error    { return closeIfCloser(s.r) }
