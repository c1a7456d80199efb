//go:build portaudio

// ABOUTME: PortAudio engine backend
// ABOUTME: Drives the port graph from an interleaved float32 PortAudio stream callback
package engine

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio engine backed by the default output device
type PortAudio struct {
	*graph

	mu          sync.Mutex
	opts        Options
	initialized bool
	stream      *portaudio.Stream
}

// NewPortAudio creates a PortAudio engine
func NewPortAudio(opts Options) (Engine, error) {
	opts = opts.withDefaults()
	return &PortAudio{
		graph: newGraph(opts.MaxFrames),
		opts:  opts,
	}, nil
}

// Open initializes PortAudio
func (p *PortAudio) Open(clientName, serverName string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if serverName != "" {
		log.Printf("portaudio: server name %q ignored", serverName)
	}

	if err := portaudio.Initialize(); err != nil {
		return "", fmt.Errorf("%w: failed to initialize portaudio: %v", ErrServerFailed, err)
	}
	p.initialized = true

	return p.openAs(clientName), nil
}

// SampleRate returns the stream rate
func (p *PortAudio) SampleRate() int {
	return p.opts.SampleRate
}

// RegisterPort registers an output port
func (p *PortAudio) RegisterPort(name string) (Port, error) {
	return p.registerPort(name)
}

// SetProcessCallback installs the pull callback
func (p *PortAudio) SetProcessCallback(fn ProcessFunc) error {
	return p.setProcess(fn)
}

// Activate opens and starts the default output stream
func (p *PortAudio) Activate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return ErrNotOpen
	}

	framesPerBuffer := int(float64(p.opts.SampleRate) * p.opts.Latency.Seconds())
	if framesPerBuffer > p.opts.MaxFrames {
		framesPerBuffer = p.opts.MaxFrames
	}

	stream, err := portaudio.OpenDefaultStream(0, deviceChannels, float64(p.opts.SampleRate), framesPerBuffer, p.render)
	if err != nil {
		return fmt.Errorf("%w: failed to open stream: %v", ErrActivate, err)
	}

	p.activate()
	if err := stream.Start(); err != nil {
		p.deactivate()
		stream.Close()
		return fmt.Errorf("%w: failed to start stream: %v", ErrActivate, err)
	}

	p.stream = stream
	return nil
}

// PhysicalSinks lists the default output device channels
func (p *PortAudio) PhysicalSinks() ([]string, error) {
	if !p.initialized {
		return nil, ErrNotOpen
	}

	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("no default output device: %w", err)
	}
	if dev.MaxOutputChannels < deviceChannels {
		return nil, nil
	}
	log.Printf("portaudio: using device %s", dev.Name)
	return p.sinks(), nil
}

// Connect routes a port to a device channel
func (p *PortAudio) Connect(port Port, sink string) error {
	return p.connect(port, sink)
}

// Deactivate stops the stream
func (p *PortAudio) Deactivate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.deactivate()
	if p.stream != nil {
		if err := p.stream.Stop(); err != nil {
			return err
		}
		if err := p.stream.Close(); err != nil {
			return err
		}
		p.stream = nil
	}
	return nil
}

// Close terminates PortAudio
func (p *PortAudio) Close() error {
	if err := p.Deactivate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.close()
	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}
