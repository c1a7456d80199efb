// ABOUTME: Host audio engine abstraction used by the output bridge
// ABOUTME: Defines Engine/Port interfaces, options, errors and the backend registry
package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/glebpom/shairport/pkg/audio"
)

// Engine kinds
const (
	KindJack      = "jack"
	KindPulse     = "pulse"
	KindMalgo     = "malgo"
	KindOto       = "oto"
	KindPortAudio = "portaudio"
	KindMock      = "mock"
)

var (
	// ErrServerFailed means the engine could not be reached
	ErrServerFailed = errors.New("unable to connect to audio server")

	// ErrNotOpen is returned for calls made before Open or after Close
	ErrNotOpen = errors.New("engine not open")

	// ErrPortRegistration means no more ports could be registered
	ErrPortRegistration = errors.New("port registration failed")

	// ErrActivate means the engine refused to start pulling the callback
	ErrActivate = errors.New("cannot activate client")

	// ErrUnknownSink is returned when connecting to a sink the engine does not expose
	ErrUnknownSink = errors.New("unknown physical sink")

	// ErrUnknownEngine is returned by New for unregistered kinds
	ErrUnknownEngine = errors.New("unknown engine")

	// ErrNotSupported is returned by backends compiled out of this build
	ErrNotSupported = errors.New("engine support not enabled in this build")
)

// ProcessFunc is the periodic pull callback. It runs on the engine's
// real-time thread and must fill every registered port buffer for nframes.
type ProcessFunc func(nframes int)

// Port is a single output channel registered with the engine
type Port interface {
	// Name returns the engine-visible port name
	Name() string

	// Buffer returns the port's output buffer for the current period.
	// Only valid inside the process callback.
	Buffer(nframes int) []float32
}

// Engine is the host audio engine: a graph of ports pulled by a periodic callback
type Engine interface {
	// Open connects to the engine. It returns the client name actually
	// assigned, which differs from clientName if that name was taken.
	Open(clientName, serverName string) (string, error)

	// SampleRate returns the engine's fixed sample rate
	SampleRate() int

	// RegisterPort creates an output port
	RegisterPort(name string) (Port, error)

	// SetProcessCallback installs the pull callback. Must precede Activate.
	SetProcessCallback(fn ProcessFunc) error

	// Activate starts pulling the callback
	Activate() error

	// PhysicalSinks lists the physical playback endpoints ports can be connected to
	PhysicalSinks() ([]string, error)

	// Connect wires an output port to a physical sink
	Connect(p Port, sink string) error

	// Deactivate stops the callback. After it returns the callback is not running
	// and will not be invoked again.
	Deactivate() error

	// Close disconnects from the engine
	Close() error
}

// Options configures engines that own their device format
type Options struct {
	// SampleRate of the device. JACK ignores it and reports the server's rate.
	SampleRate int

	// MaxFrames is the largest period handed to the callback in one call.
	// Larger device requests are split.
	MaxFrames int

	// Latency is the requested device buffer duration
	Latency time.Duration
}

// DefaultOptions returns options for the bridge's stream format
func DefaultOptions() Options {
	return Options{
		SampleRate: audio.DefaultSampleRate,
		MaxFrames:  8192,
		Latency:    50 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SampleRate == 0 {
		o.SampleRate = d.SampleRate
	}
	if o.MaxFrames == 0 {
		o.MaxFrames = d.MaxFrames
	}
	if o.Latency == 0 {
		o.Latency = d.Latency
	}
	return o
}

var factories = map[string]func(Options) (Engine, error){
	KindJack:      func(o Options) (Engine, error) { return NewJack(o) },
	KindPulse:     func(o Options) (Engine, error) { return NewPulse(o), nil },
	KindMalgo:     func(o Options) (Engine, error) { return NewMalgo(o), nil },
	KindOto:       func(o Options) (Engine, error) { return NewOto(o), nil },
	KindPortAudio: func(o Options) (Engine, error) { return NewPortAudio(o) },
	KindMock:      func(o Options) (Engine, error) { return NewMock(o), nil },
}

// New creates an engine of the given kind
func New(kind string, opts Options) (Engine, error) {
	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownEngine, kind, Kinds())
	}
	return factory(opts.withDefaults())
}

// Kinds returns the registered engine kinds, sorted
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
