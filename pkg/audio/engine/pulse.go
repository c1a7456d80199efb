// ABOUTME: PulseAudio engine backend (pure Go protocol client)
// ABOUTME: Feeds the port graph to a float32 stereo playback stream on the default sink
package engine

import (
	"fmt"
	"log"
	"sync"

	"github.com/jfreymuth/pulse"
)

// Pulse engine backed by a PulseAudio (or PipeWire-pulse) playback stream
type Pulse struct {
	*graph

	mu     sync.Mutex
	opts   Options
	client *pulse.Client
	sink   *pulse.Sink
	stream *pulse.PlaybackStream
}

// NewPulse creates a PulseAudio engine
func NewPulse(opts Options) *Pulse {
	opts = opts.withDefaults()
	return &Pulse{
		graph: newGraph(opts.MaxFrames),
		opts:  opts,
	}
}

// Open connects to the sound server. serverName is a PulseAudio server string.
func (p *Pulse) Open(clientName, serverName string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := []pulse.ClientOption{pulse.ClientApplicationName(clientName)}
	if serverName != "" {
		opts = append(opts, pulse.ClientServerString(serverName))
	}

	client, err := pulse.NewClient(opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServerFailed, err)
	}
	p.client = client

	return p.openAs(clientName), nil
}

// SampleRate returns the stream rate
func (p *Pulse) SampleRate() int {
	return p.opts.SampleRate
}

// RegisterPort registers an output port
func (p *Pulse) RegisterPort(name string) (Port, error) {
	return p.registerPort(name)
}

// SetProcessCallback installs the pull callback
func (p *Pulse) SetProcessCallback(fn ProcessFunc) error {
	return p.setProcess(fn)
}

// read is the stream's Float32Reader
func (p *Pulse) read(out []float32) (int, error) {
	n := (len(out) / deviceChannels) * deviceChannels
	p.render(out[:n])
	return n, nil
}

// Activate opens and starts the playback stream
func (p *Pulse) Activate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return ErrNotOpen
	}

	opts := []pulse.PlaybackOption{
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(p.opts.SampleRate),
		pulse.PlaybackLatency(p.opts.Latency.Seconds()),
		pulse.PlaybackMediaName(p.clientName),
	}
	if p.sink != nil {
		opts = append(opts, pulse.PlaybackSink(p.sink))
	}

	stream, err := p.client.NewPlayback(pulse.Float32Reader(p.read), opts...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrActivate, err)
	}

	p.activate()
	stream.Start()
	p.stream = stream

	log.Printf("pulse: playback stream started at %dHz", p.opts.SampleRate)
	return nil
}

// PhysicalSinks lists the default sink's channels. It fails if the
// server has no sinks at all.
func (p *Pulse) PhysicalSinks() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil, ErrNotOpen
	}

	sinks, err := p.client.ListSinks()
	if err != nil {
		return nil, fmt.Errorf("failed to list sinks: %w", err)
	}
	if len(sinks) == 0 {
		return nil, nil
	}

	sink, err := p.client.DefaultSink()
	if err != nil {
		sink = sinks[0]
	}
	p.sink = sink
	log.Printf("pulse: using sink %s", sink.Name())

	return p.sinks(), nil
}

// Connect routes a port to a sink channel
func (p *Pulse) Connect(port Port, sink string) error {
	return p.connect(port, sink)
}

// Deactivate stops the playback stream
func (p *Pulse) Deactivate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.deactivate()
	if p.stream != nil {
		p.stream.Stop()
		p.stream.Close()
		p.stream = nil
	}
	return nil
}

// Close disconnects from the sound server
func (p *Pulse) Close() error {
	if err := p.Deactivate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.close()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	return nil
}
