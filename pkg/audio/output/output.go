// ABOUTME: Output bridge context and lifecycle controller
// ABOUTME: Owns the ring buffer, engine ports and the init/start/stop/deinit state machine
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebpom/shairport/pkg/audio"
	"github.com/glebpom/shairport/pkg/audio/engine"
	"github.com/glebpom/shairport/pkg/audio/ringbuf"
)

var (
	// ErrUnsupportedRate is returned when a stream or engine rate differs from the configured rate
	ErrUnsupportedRate = errors.New("unexpected sample rate")

	// ErrNoPhysicalPorts means the engine exposes fewer than two physical sinks
	ErrNoPhysicalPorts = errors.New("no physical playback ports")

	// ErrInvalidState is returned for lifecycle calls made out of order
	ErrInvalidState = errors.New("invalid output state")

	// ErrNotStarted is returned by the feeder outside Start/Stop
	ErrNotStarted = errors.New("output not started")

	// ErrOverrun signals partial acceptance: part of the audio was dropped
	ErrOverrun = errors.New("ring buffer overrun")

	// ErrPartialFrame is returned for byte counts that are not whole frames
	ErrPartialFrame = errors.New("write is not a whole number of frames")

	// ErrInvalidConfig is returned by New for unusable configuration
	ErrInvalidConfig = errors.New("invalid output configuration")
)

// Backend is the pluggable output shape the upstream decoder drives
type Backend interface {
	// Name returns the backend name
	Name() string

	// Help writes the backend's option help
	Help(w io.Writer)

	// Init connects to the audio engine and starts rendering silence
	Init() error

	// Deinit disconnects from the engine and releases the buffer
	Deinit() error

	// Start begins a stream at sampleRate
	Start(sampleRate int) error

	// Stop drains buffered audio and ends the stream
	Stop(ctx context.Context) error

	// Play queues frames of interleaved int16 stereo samples
	Play(samples []int16, frames int) error

	// SetVolume sets the linear volume multiplier
	SetVolume(volume float32)
}

// State of the output lifecycle
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// OverflowPolicy decides what the feeder does when the ring is full
type OverflowPolicy int

const (
	// OverflowBlock waits for the consumer to drain, up to WriteTimeout,
	// then drops what still does not fit
	OverflowBlock OverflowPolicy = iota

	// OverflowDropNew writes what fits and drops the rest immediately
	OverflowDropNew
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowBlock:
		return "block"
	case OverflowDropNew:
		return "drop-new"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// ParseOverflowPolicy parses "block" or "drop-new"
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "block", "":
		return OverflowBlock, nil
	case "drop-new", "drop":
		return OverflowDropNew, nil
	default:
		return 0, fmt.Errorf("%w: unknown overflow policy %q (block, drop-new)", ErrInvalidConfig, s)
	}
}

// Config holds output configuration
type Config struct {
	// ClientName is the engine client name (default: shairport)
	ClientName string

	// ServerName selects the engine server (default: engine default)
	ServerName string

	// SampleRate is the single supported rate (default: 44100)
	SampleRate int

	// BufferSeconds sizes the ring buffer (default: 10)
	BufferSeconds int

	// BufferBytes overrides BufferSeconds when set. Must be whole frames.
	BufferBytes int

	// Overflow is the feeder's full-buffer policy
	Overflow OverflowPolicy

	// WriteTimeout bounds how long a blocking write waits for space (default: 2s)
	WriteTimeout time.Duration

	// DrainTimeout bounds Stop's wait for the ring to empty (default: 2s)
	DrainTimeout time.Duration

	// PollInterval is the feeder's fallback recheck interval (default: 5ms)
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.ClientName == "" {
		c.ClientName = "shairport"
	}
	if c.SampleRate == 0 {
		c.SampleRate = audio.DefaultSampleRate
	}
	if c.BufferSeconds == 0 {
		c.BufferSeconds = 10
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = 2 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Millisecond
	}
	return c
}

func (c Config) capacity() int {
	if c.BufferBytes > 0 {
		return c.BufferBytes
	}
	return c.SampleRate * audio.BytesPerFrame * c.BufferSeconds
}

// Stats is a snapshot of the output counters
type Stats struct {
	State          State
	ClientName     string
	Capacity       int
	BufferedBytes  int
	RenderedFrames uint64
	SilentFrames   uint64
	Underruns      uint64
	WrittenBytes   uint64
	DroppedBytes   uint64
	Overruns       uint64
	Volume         float32
	Muted          bool
}

// BufferedDuration converts buffered bytes into playback time at rate
func (s Stats) BufferedDuration(rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	frames := s.BufferedBytes / audio.BytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(rate)
}

// Output bridges a non-real-time feeder to the engine's render callback.
// It replaces the module-level client/port/buffer globals of a classic
// output driver, so several independent outputs can coexist.
type Output struct {
	cfg Config
	eng engine.Engine

	// lifecycle, never taken from the render callback
	mu         sync.Mutex
	state      atomic.Int32
	clientName string
	left       engine.Port
	right      engine.Port
	ring       *ringbuf.Buffer
	done       chan struct{}

	// feeder side
	feedMu  sync.Mutex
	playBuf []byte

	// shared between feeder and render callback
	playing    atomic.Bool
	flush      atomic.Bool
	volumeBits atomic.Uint32
	muted      atomic.Bool
	drained    chan struct{}

	renderedFrames atomic.Uint64
	silentFrames   atomic.Uint64
	underruns      atomic.Uint64
	writtenBytes   atomic.Uint64
	droppedBytes   atomic.Uint64
	overruns       atomic.Uint64
}

// New creates an output on eng. Nothing is opened until Init.
func New(eng engine.Engine, cfg Config) (*Output, error) {
	cfg = cfg.withDefaults()

	if eng == nil {
		return nil, fmt.Errorf("%w: nil engine", ErrInvalidConfig)
	}
	if cfg.SampleRate < 0 || cfg.BufferSeconds < 0 || cfg.BufferBytes < 0 {
		return nil, fmt.Errorf("%w: negative size", ErrInvalidConfig)
	}
	if cfg.capacity()%audio.BytesPerFrame != 0 {
		return nil, fmt.Errorf("%w: buffer of %d bytes is not whole frames", ErrInvalidConfig, cfg.capacity())
	}

	o := &Output{
		cfg:     cfg,
		eng:     eng,
		done:    make(chan struct{}),
		drained: make(chan struct{}, 1),
	}
	o.volumeBits.Store(math.Float32bits(1.0))
	return o, nil
}

// Name returns the backend name
func (o *Output) Name() string {
	return "jack"
}

// Help writes the command line options understood by the output
func (o *Output) Help(w io.Writer) {
	Help(w)
}

// Help writes the output's option help
func Help(w io.Writer) {
	fmt.Fprint(w, "    -c client_name      set the jack client name\n"+
		"    -s server_name      set the jack server name\n")
}

// State returns the current lifecycle state
func (o *Output) State() State {
	return State(o.state.Load())
}

// ClientName returns the engine-assigned client name
func (o *Output) ClientName() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clientName
}

// SampleRate returns the configured rate
func (o *Output) SampleRate() int {
	return o.cfg.SampleRate
}

// Init connects to the engine, allocates the ring, registers and wires
// the left/right ports and installs the render callback. Any failure is
// final: the engine connection is closed and the caller is expected to exit.
func (o *Output) Init() (err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s := o.State(); s != StateUninitialized {
		return fmt.Errorf("%w: init called in state %s", ErrInvalidState, s)
	}

	name, err := o.eng.Open(o.cfg.ClientName, o.cfg.ServerName)
	if err != nil {
		return fmt.Errorf("failed to open engine client: %w", err)
	}
	defer func() {
		if err != nil {
			o.eng.Deactivate()
			o.eng.Close()
			o.ring = nil
		}
	}()
	o.clientName = name
	if name != o.cfg.ClientName {
		log.Printf("unique name `%s' assigned", name)
	}

	if rate := o.eng.SampleRate(); rate != o.cfg.SampleRate {
		return fmt.Errorf("%w: engine runs at %dHz, output configured for %dHz", ErrUnsupportedRate, rate, o.cfg.SampleRate)
	}

	ring, err := ringbuf.New(o.cfg.capacity())
	if err != nil {
		return fmt.Errorf("failed to allocate ring buffer: %w", err)
	}
	o.ring = ring

	if o.left, err = o.eng.RegisterPort("left"); err != nil {
		return fmt.Errorf("failed to register left port: %w", err)
	}
	if o.right, err = o.eng.RegisterPort("right"); err != nil {
		return fmt.Errorf("failed to register right port: %w", err)
	}

	if err := o.eng.SetProcessCallback(o.process); err != nil {
		return fmt.Errorf("failed to install render callback: %w", err)
	}

	if err := o.eng.Activate(); err != nil {
		return fmt.Errorf("failed to activate engine: %w", err)
	}

	sinks, err := o.eng.PhysicalSinks()
	if err != nil {
		return fmt.Errorf("failed to query physical ports: %w", err)
	}
	if len(sinks) < 2 {
		return fmt.Errorf("%w: found %d", ErrNoPhysicalPorts, len(sinks))
	}

	if err := o.eng.Connect(o.left, sinks[0]); err != nil {
		return fmt.Errorf("cannot connect output ports: %w", err)
	}
	if err := o.eng.Connect(o.right, sinks[1]); err != nil {
		return fmt.Errorf("cannot connect output ports: %w", err)
	}

	o.state.Store(int32(StateReady))
	log.Printf("Output initialized: client %s, %dHz, %d byte buffer, ports -> %s, %s",
		name, o.cfg.SampleRate, ring.Capacity(), sinks[0], sinks[1])
	return nil
}

// Start begins accepting audio at sampleRate. Rates other than the
// configured one are rejected before any audio is accepted.
func (o *Output) Start(sampleRate int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if sampleRate != o.cfg.SampleRate {
		return fmt.Errorf("%w: %dHz (supported: %dHz)", ErrUnsupportedRate, sampleRate, o.cfg.SampleRate)
	}

	switch s := o.State(); s {
	case StateActive:
		return nil
	case StateReady:
	default:
		return fmt.Errorf("%w: start called in state %s", ErrInvalidState, s)
	}

	o.playing.Store(true)
	o.state.Store(int32(StateActive))
	log.Printf("Stream started: %s", audio.StreamFormat(sampleRate))
	return nil
}

// Stop stops accepting audio and blocks until the render callback has
// drained the ring, ctx is done or DrainTimeout elapses.
func (o *Output) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.State() != StateActive {
		o.mu.Unlock()
		return nil
	}
	o.playing.Store(false)
	o.state.Store(int32(StateReady))
	ring := o.ring
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.DrainTimeout)
	defer cancel()

	if err := o.drain(ctx, ring); err != nil {
		log.Printf("Stream stopped before drain completed: %v", err)
		return err
	}
	log.Printf("Stream stopped, buffer drained")
	return nil
}

func (o *Output) drain(ctx context.Context, ring *ringbuf.Buffer) error {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		left := ring.ReadAvailable()
		if left < audio.BytesPerFrame {
			return nil
		}
		select {
		case <-o.drained:
		case <-ticker.C:
		case <-o.done:
			return fmt.Errorf("output closed with %d bytes buffered", left)
		case <-ctx.Done():
			return fmt.Errorf("drain incomplete, %d bytes buffered: %w", left, ctx.Err())
		}
	}
}

// Flush discards buffered audio at the next render period
func (o *Output) Flush() {
	o.flush.Store(true)
}

// Deinit deactivates the engine, closes the connection and releases the
// ring. The engine guarantees the render callback is no longer running
// once Deactivate returns, so the ring can be dropped afterwards.
func (o *Output) Deinit() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.State() {
	case StateClosed:
		return nil
	case StateUninitialized:
		o.state.Store(int32(StateClosed))
		close(o.done)
		return nil
	}

	o.playing.Store(false)
	close(o.done)

	var errs []error
	if err := o.eng.Deactivate(); err != nil {
		errs = append(errs, fmt.Errorf("failed to deactivate engine: %w", err))
	}
	if err := o.eng.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close engine: %w", err))
	}

	o.feedMu.Lock()
	o.ring = nil
	o.playBuf = nil
	o.feedMu.Unlock()

	o.state.Store(int32(StateClosed))
	log.Printf("Output closed: client %s", o.clientName)
	return errors.Join(errs...)
}

// SetVolume sets the linear volume multiplier, clamped to [0, 1]
func (o *Output) SetVolume(volume float32) {
	if volume < 0 || math.IsNaN(float64(volume)) {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	o.volumeBits.Store(math.Float32bits(volume))
}

// Volume returns the linear volume multiplier
func (o *Output) Volume() float32 {
	return math.Float32frombits(o.volumeBits.Load())
}

// SetMuted sets mute state
func (o *Output) SetMuted(muted bool) {
	o.muted.Store(muted)
}

// IsMuted returns mute state
func (o *Output) IsMuted() bool {
	return o.muted.Load()
}

// effectiveVolume is read once per render period
func (o *Output) effectiveVolume() float32 {
	if o.muted.Load() {
		return 0
	}
	return o.Volume()
}

// Stats returns a snapshot of the counters
func (o *Output) Stats() Stats {
	s := Stats{
		State:          o.State(),
		RenderedFrames: o.renderedFrames.Load(),
		SilentFrames:   o.silentFrames.Load(),
		Underruns:      o.underruns.Load(),
		WrittenBytes:   o.writtenBytes.Load(),
		DroppedBytes:   o.droppedBytes.Load(),
		Overruns:       o.overruns.Load(),
		Volume:         o.Volume(),
		Muted:          o.IsMuted(),
	}

	o.mu.Lock()
	s.ClientName = o.clientName
	if o.ring != nil {
		s.Capacity = o.ring.Capacity()
		s.BufferedBytes = o.ring.ReadAvailable()
	}
	o.mu.Unlock()
	return s
}
