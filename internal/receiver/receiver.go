// ABOUTME: Shared stream session handling for network receivers
// ABOUTME: Validates stream headers, owns the single-sender guard and feeds the output
package receiver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebpom/shairport/pkg/audio"
	"github.com/glebpom/shairport/pkg/audio/decode"
	"github.com/glebpom/shairport/pkg/audio/output"
	"github.com/google/uuid"
)

var (
	// ErrBusy is returned when another sender already owns the output
	ErrBusy = errors.New("another stream is active")

	// ErrBadHeader is returned for malformed or unsupported stream headers
	ErrBadHeader = errors.New("invalid stream header")
)

// stopTimeout bounds the drain when a sender goes away
const stopTimeout = 5 * time.Second

// Sink is the output a receiver feeds. *output.Output implements it.
type Sink interface {
	Start(sampleRate int) error
	Stop(ctx context.Context) error
	Write(p []byte) (int, error)
	Play(samples []int16, frames int) error
	SampleRate() int
}

// Header announces a stream before any audio
type Header struct {
	Codec      string `json:"codec,omitempty"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// Format returns the PCM format the header describes
func (h Header) Format() audio.Format {
	return audio.Format{
		SampleRate: h.SampleRate,
		Channels:   h.Channels,
		BitDepth:   h.BitDepth,
	}
}

// Guard admits one sender at a time across all receivers
type Guard struct {
	mu    sync.Mutex
	owner string
}

// Acquire claims the output for id, returning false if someone else holds it
func (g *Guard) Acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner != "" && g.owner != id {
		return false
	}
	g.owner = id
	return true
}

// Release frees the output if id holds it
func (g *Guard) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner == id {
		g.owner = ""
	}
}

// Owner returns the current session id, or "" when idle
func (g *Guard) Owner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

// session is one sender's stream into the sink
type session struct {
	id     string
	origin string
	sink   Sink
	guard  *Guard
	dec    decode.Decoder

	packets atomic.Uint64
	bytes   atomic.Uint64
	dropped atomic.Uint64
	started time.Time
}

// openSession claims the guard, validates h and starts the sink
func openSession(sink Sink, guard *Guard, origin string, h Header) (*session, error) {
	s := &session{
		id:      uuid.New().String(),
		origin:  origin,
		sink:    sink,
		guard:   guard,
		started: time.Now(),
	}

	if !guard.Acquire(s.id) {
		return nil, ErrBusy
	}

	if err := s.start(h); err != nil {
		guard.Release(s.id)
		return nil, err
	}

	log.Printf("Stream %s started from %s: %s %s", s.id, origin, codecName(h.Codec), h.Format())
	return s, nil
}

func codecName(codec string) string {
	if codec == "" {
		return "pcm"
	}
	return codec
}

func (s *session) start(h Header) error {
	switch codecName(h.Codec) {
	case "pcm":
		if h.Channels != audio.Channels || h.BitDepth != audio.BitDepth {
			return fmt.Errorf("%w: %s (supported: %dch %d-bit)", ErrBadHeader, h.Format(), audio.Channels, audio.BitDepth)
		}
	case "opus":
		if h.Channels != audio.Channels {
			return fmt.Errorf("%w: %d channels (supported: %d)", ErrBadHeader, h.Channels, audio.Channels)
		}
	default:
		return fmt.Errorf("%w: codec %q", ErrBadHeader, h.Codec)
	}

	if err := s.sink.Start(h.SampleRate); err != nil {
		return err
	}

	if codecName(h.Codec) == "opus" {
		dec, err := decode.NewDecoder("opus", audio.StreamFormat(h.SampleRate))
		if err != nil {
			ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			s.sink.Stop(ctx)
			return fmt.Errorf("%w: %v", ErrBadHeader, err)
		}
		s.dec = dec
	}
	return nil
}

// feed writes one packet. Overruns are counted by the output and are not
// fatal for the session.
func (s *session) feed(data []byte) error {
	s.packets.Add(1)

	var err error
	if s.dec == nil {
		var n int
		n, err = s.sink.Write(data)
		s.bytes.Add(uint64(n))
	} else {
		var samples []int16
		samples, err = s.dec.Decode(data)
		if err != nil {
			return err
		}
		err = s.sink.Play(samples, len(samples)/audio.Channels)
		s.bytes.Add(uint64(len(samples) * audio.BytesPerSample))
	}

	if errors.Is(err, output.ErrOverrun) {
		s.dropped.Add(1)
		return nil
	}
	return err
}

// close drains the sink and releases the guard
func (s *session) close(ctx context.Context) {
	defer s.guard.Release(s.id)

	if s.dec != nil {
		s.dec.Close()
	}

	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.sink.Stop(ctx); err != nil {
		log.Printf("Stream %s stop: %v", s.id, err)
	}

	log.Printf("Stream %s ended after %s: %d packets, %d bytes, %d overruns",
		s.id, time.Since(s.started).Round(time.Millisecond), s.packets.Load(), s.bytes.Load(), s.dropped.Load())
}
