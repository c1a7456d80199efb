// ABOUTME: Source and Decoder interfaces with extension-based file opening
// ABOUTME: Check validates a source against the bridge format
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebpom/shairport/pkg/audio"
)

var (
	// ErrUnsupportedFormat is returned for unknown file types or codecs
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFormatMismatch is returned by Check when a source is not playable as-is
	ErrFormatMismatch = errors.New("audio format does not match output")
)

// Source streams interleaved int16 samples
type Source interface {
	// Read fills samples and returns how many were written, always whole
	// frames. It returns 0, io.EOF at the end of the stream.
	Read(samples []int16) (int, error)

	// SampleRate returns the sample rate of the audio
	SampleRate() int

	// Channels returns the number of channels
	Channels() int

	// Title returns a display name for the source
	Title() string

	// Close releases the underlying file
	Close() error
}

// Decoder decodes one network packet into interleaved int16 samples
type Decoder interface {
	// Decode converts an encoded packet to PCM samples
	Decode(data []byte) ([]int16, error)

	// Close releases decoder resources
	Close() error
}

// Open creates a source for a local file, chosen by extension
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ext := strings.ToLower(filepath.Ext(path))

	var src Source
	switch ext {
	case ".wav", ".wave":
		src, err = NewWAV(f, title)
	case ".mp3":
		src, err = NewMP3(f, title)
	case ".flac":
		src, err = NewFLAC(f, title)
	case ".ogg", ".oga":
		src, err = NewVorbis(f, title)
	case ".raw", ".pcm":
		src = NewPCM(f, audio.DefaultSampleRate, title)
	default:
		err = fmt.Errorf("%w: %s (supported: .wav, .mp3, .flac, .ogg, .raw)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// Check verifies src is stereo 16-bit at rate
func Check(src Source, rate int) error {
	f := audio.Format{
		SampleRate: src.SampleRate(),
		Channels:   src.Channels(),
		BitDepth:   audio.BitDepth,
	}
	if err := f.Validate(rate); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFormatMismatch, src.Title(), err)
	}
	return nil
}

// closeIfCloser closes r when it is an io.Closer
func closeIfCloser(r any) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
