//go:build jack

// ABOUTME: JACK engine backend
// ABOUTME: Registers real JACK output ports and wires them to physical playback ports
package engine

import (
	"fmt"
	"log"
	"os"
	"sync"
	"unsafe"

	"github.com/xthexder/go-jack"
)

// Jack engine talking to a JACK server
type Jack struct {
	mu     sync.Mutex
	client *jack.Client
	ports  []*jackPort
}

type jackPort struct {
	port *jack.Port
}

func (p *jackPort) Name() string { return p.port.GetName() }

func (p *jackPort) Buffer(nframes int) []float32 {
	buf := p.port.GetBuffer(uint32(nframes))
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&buf[0])), len(buf))
}

// NewJack creates a JACK engine. Device options are ignored; the server
// owns the rate and period.
func NewJack(opts Options) (Engine, error) {
	return &Jack{}, nil
}

// Open connects to the JACK server. A non-empty serverName selects the
// server through JACK_DEFAULT_SERVER.
func (j *Jack) Open(clientName, serverName string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if serverName != "" {
		if err := os.Setenv("JACK_DEFAULT_SERVER", serverName); err != nil {
			return "", fmt.Errorf("failed to select server %q: %w", serverName, err)
		}
	}

	client, status := jack.ClientOpen(clientName, jack.NullOption)
	if client == nil {
		if status&jack.ServerFailed != 0 {
			return "", fmt.Errorf("%w: jack_client_open() failed, status = 0x%2.0x", ErrServerFailed, status)
		}
		return "", fmt.Errorf("jack_client_open() failed, status = 0x%2.0x", status)
	}
	if status&jack.ServerStarted != 0 {
		log.Printf("JACK server started")
	}

	j.client = client
	name := clientName
	if status&jack.NameNotUnique != 0 {
		name = client.GetName()
		log.Printf("unique name `%s' assigned", name)
	}
	return name, nil
}

// SampleRate returns the server rate
func (j *Jack) SampleRate() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.client == nil {
		return 0
	}
	return int(j.client.GetSampleRate())
}

// RegisterPort registers an audio output port
func (j *Jack) RegisterPort(name string) (Port, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.client == nil {
		return nil, ErrNotOpen
	}
	port := j.client.PortRegister(name, jack.DEFAULT_AUDIO_TYPE, jack.PortIsOutput, 0)
	if port == nil {
		return nil, fmt.Errorf("%w: no more JACK ports available", ErrPortRegistration)
	}
	p := &jackPort{port: port}
	j.ports = append(j.ports, p)
	return p, nil
}

// SetProcessCallback installs the process callback
func (j *Jack) SetProcessCallback(fn ProcessFunc) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.client == nil {
		return ErrNotOpen
	}
	if code := j.client.SetProcessCallback(func(nframes uint32) int {
		fn(int(nframes))
		return 0
	}); code != 0 {
		return fmt.Errorf("failed to set process callback: code %d", code)
	}
	return nil
}

// Activate tells the server the client is ready to roll
func (j *Jack) Activate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.client == nil {
		return ErrNotOpen
	}
	if code := j.client.Activate(); code != 0 {
		return fmt.Errorf("%w: code %d", ErrActivate, code)
	}
	return nil
}

// PhysicalSinks lists physical playback ports
func (j *Jack) PhysicalSinks() ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.client == nil {
		return nil, ErrNotOpen
	}
	return j.client.GetPorts("", "", jack.PortIsPhysical|jack.PortIsInput), nil
}

// Connect connects an output port to a physical port
func (j *Jack) Connect(p Port, sink string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.client == nil {
		return ErrNotOpen
	}
	if code := j.client.Connect(p.Name(), sink); code != 0 {
		return fmt.Errorf("cannot connect %s to %s: code %d", p.Name(), sink, code)
	}
	return nil
}

// Deactivate removes the client from the process graph. The server
// guarantees the callback is not running once this returns.
func (j *Jack) Deactivate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.client == nil {
		return nil
	}
	if code := j.client.Deactivate(); code != 0 {
		return fmt.Errorf("cannot deactivate client: code %d", code)
	}
	return nil
}

// Close closes the client connection
func (j *Jack) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.client == nil {
		return nil
	}
	code := j.client.Close()
	j.client = nil
	j.ports = nil
	if code != 0 {
		return fmt.Errorf("jack_client_close() failed: code %d", code)
	}
	return nil
}
