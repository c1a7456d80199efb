// ABOUTME: Malgo (miniaudio) engine backend
// ABOUTME: Drives the port graph from a float32 stereo playback device callback
package engine

import (
	"fmt"
	"log"
	"sync"

	"github.com/gen2brain/malgo"
)

// Malgo engine backed by a miniaudio playback device
type Malgo struct {
	*graph

	mu         sync.Mutex
	opts       Options
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	deviceName string
}

// NewMalgo creates a miniaudio engine
func NewMalgo(opts Options) *Malgo {
	opts = opts.withDefaults()
	return &Malgo{
		graph: newGraph(opts.MaxFrames),
		opts:  opts,
	}
}

// Open initializes the miniaudio context
func (m *Malgo) Open(clientName, serverName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if serverName != "" {
		log.Printf("malgo: server name %q ignored", serverName)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to initialize malgo context: %v", ErrServerFailed, err)
	}
	m.malgoCtx = ctx

	return m.openAs(clientName), nil
}

// SampleRate returns the device rate
func (m *Malgo) SampleRate() int {
	return m.opts.SampleRate
}

// RegisterPort registers an output port
func (m *Malgo) RegisterPort(name string) (Port, error) {
	return m.registerPort(name)
}

// SetProcessCallback installs the pull callback
func (m *Malgo) SetProcessCallback(fn ProcessFunc) error {
	return m.setProcess(fn)
}

// Activate opens and starts the playback device
func (m *Malgo) Activate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx == nil {
		return ErrNotOpen
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = deviceChannels
	deviceConfig.SampleRate = uint32(m.opts.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(m.opts.Latency.Milliseconds())
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			m.renderLE(pOutput[:int(frameCount)*deviceChannels*4])
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("%w: failed to initialize playback device: %v", ErrActivate, err)
	}

	m.activate()
	if err := device.Start(); err != nil {
		m.deactivate()
		device.Uninit()
		return fmt.Errorf("%w: failed to start device: %v", ErrActivate, err)
	}

	m.device = device
	log.Printf("malgo: playback device started at %dHz", m.opts.SampleRate)
	return nil
}

// PhysicalSinks lists the device channels
func (m *Malgo) PhysicalSinks() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx == nil {
		return nil, ErrNotOpen
	}

	devices, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, nil
	}
	m.deviceName = devices[0].Name()
	return m.sinks(), nil
}

// Connect routes a port to a device channel
func (m *Malgo) Connect(p Port, sink string) error {
	return m.connect(p, sink)
}

// Deactivate stops the device
func (m *Malgo) Deactivate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deactivate()
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	return nil
}

// Close releases the miniaudio context
func (m *Malgo) Close() error {
	if err := m.Deactivate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.close()
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}
