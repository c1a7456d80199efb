// ABOUTME: Deterministic engine for hardware-independent tests
// ABOUTME: Records lifecycle calls, injects failures and lets tests pull periods by hand
package engine

import (
	"fmt"
	"sync"
)

// Mock implements Engine without any audio hardware. Tests drive the
// process callback with Pull instead of a device thread.
type Mock struct {
	*graph

	mu    sync.Mutex
	rate  int
	calls []string
	taken map[string]bool

	sinkCount   int
	openErr     error
	registerErr map[string]error
	activateErr error
	connectErr  error
	sinksErr    error
}

// NewMock creates a mock engine with two physical sinks
func NewMock(opts Options) *Mock {
	opts = opts.withDefaults()
	return &Mock{
		graph:       newGraph(opts.MaxFrames),
		rate:        opts.SampleRate,
		taken:       make(map[string]bool),
		sinkCount:   deviceChannels,
		registerErr: make(map[string]error),
	}
}

// SetOpenError makes Open fail with err
func (m *Mock) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// SetRegisterError makes RegisterPort fail for the named port
func (m *Mock) SetRegisterError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerErr[name] = err
}

// SetActivateError makes Activate fail with err
func (m *Mock) SetActivateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activateErr = err
}

// SetConnectError makes Connect fail with err
func (m *Mock) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// SetSinks sets how many physical sinks PhysicalSinks reports
func (m *Mock) SetSinks(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinkCount = n
	m.sinksErr = err
}

// TakeName marks a client name as already used by another client
func (m *Mock) TakeName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taken[name] = true
}

// Calls returns the engine methods invoked so far, in order
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *Mock) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Open connects the mock client, picking an alternate name if clientName is taken
func (m *Mock) Open(clientName, serverName string) (string, error) {
	m.record("open")

	m.mu.Lock()
	err := m.openErr
	name := clientName
	for i := 1; m.taken[name]; i++ {
		name = fmt.Sprintf("%s-%02d", clientName, i)
	}
	m.taken[name] = true
	m.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServerFailed, err)
	}
	return m.openAs(name), nil
}

// SampleRate returns the configured rate
func (m *Mock) SampleRate() int {
	return m.rate
}

// RegisterPort registers an output port
func (m *Mock) RegisterPort(name string) (Port, error) {
	m.record("register:" + name)

	m.mu.Lock()
	err := m.registerErr[name]
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPortRegistration, err)
	}
	return m.registerPort(name)
}

// SetProcessCallback installs the pull callback
func (m *Mock) SetProcessCallback(fn ProcessFunc) error {
	m.record("callback")
	return m.setProcess(fn)
}

// Activate enables Pull
func (m *Mock) Activate() error {
	m.record("activate")

	m.mu.Lock()
	err := m.activateErr
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrActivate, err)
	}
	m.activate()
	return nil
}

// PhysicalSinks lists the mock's physical sinks
func (m *Mock) PhysicalSinks() ([]string, error) {
	m.record("sinks")

	m.mu.Lock()
	n, err := m.sinkCount, m.sinksErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sinks := m.sinks()
	if n < len(sinks) {
		sinks = sinks[:n]
	}
	return sinks, nil
}

// Connect routes a port to a sink
func (m *Mock) Connect(p Port, sink string) error {
	m.record("connect:" + sink)

	m.mu.Lock()
	err := m.connectErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.connect(p, sink)
}

// Deactivate stops Pull from invoking the callback
func (m *Mock) Deactivate() error {
	m.record("deactivate")
	m.deactivate()
	return nil
}

// Close releases the mock client
func (m *Mock) Close() error {
	m.record("close")
	m.close()
	return nil
}

// Active reports whether the callback is being pulled
func (m *Mock) Active() bool {
	return m.active.Load()
}

// Pull runs one period of nframes and returns the interleaved stereo output
// as a physical device would receive it
func (m *Mock) Pull(nframes int) []float32 {
	out := make([]float32, nframes*deviceChannels)
	m.render(out)
	return out
}

// PullChannels runs one period and returns the left and right sink signals
func (m *Mock) PullChannels(nframes int) (left, right []float32) {
	out := m.Pull(nframes)
	left = make([]float32, nframes)
	right = make([]float32, nframes)
	for i := 0; i < nframes; i++ {
		left[i] = out[i*deviceChannels]
		right[i] = out[i*deviceChannels+1]
	}
	return left, right
}
