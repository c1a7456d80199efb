// ABOUTME: WAV file source
// ABOUTME: Decodes PCM WAV through go-audio/wav into int16 samples
package decode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource reads a PCM WAV file
type WAVSource struct {
	r        io.ReadSeeker
	dec      *wav.Decoder
	rate     int
	channels int
	bitDepth int
	title    string
	buf      *goaudio.IntBuffer
}

// NewWAV parses the WAV header from r
func NewWAV(r io.ReadSeeker, title string) (*WAVSource, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrUnsupportedFormat, title)
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV audio format %d (supported: PCM)", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	return &WAVSource{
		r:        r,
		dec:      dec,
		rate:     int(dec.SampleRate),
		channels: int(dec.NumChans),
		bitDepth: int(dec.BitDepth),
		title:    title,
	}, nil
}

func (s *WAVSource) Read(samples []int16) (int, error) {
	want := len(samples) - len(samples)%max(s.channels, 1)
	if want == 0 {
		return 0, nil
	}

	if s.buf == nil || cap(s.buf.Data) < want {
		s.buf = &goaudio.IntBuffer{
			Data:   make([]int, want),
			Format: s.dec.Format(),
		}
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return 0, fmt.Errorf("failed to decode WAV: %w", err)
	}
	n -= n % max(s.channels, 1)
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.buf.Data[:n] {
		if s.bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = scaleTo16(int32(v), s.bitDepth)
	}
	return n, nil
}

func (s *WAVSource) SampleRate() int { return s.rate }
func (s *WAVSource) Channels() int   { return s.channels }
func (s *WAVSource) Title() string   { return s.title }
func (s *WAVSource) Close() error    { return closeIfCloser(s.r) }

// scaleTo16 maps a signed sample of the given bit depth onto int16
func scaleTo16(v int32, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	case bitDepth < 16 && bitDepth > 0:
		return int16(v << (16 - bitDepth))
	default:
		return int16(v)
	}
}
