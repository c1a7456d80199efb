// ABOUTME: Oto engine backend
// ABOUTME: Serves the port graph to an oto player through a pull io.Reader
package engine

import (
	"fmt"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Oto engine. oto allows a single context per process, so Close suspends
// the context instead of destroying it.
type Oto struct {
	*graph

	mu     sync.Mutex
	opts   Options
	otoCtx *oto.Context
	player *oto.Player
}

// NewOto creates an oto engine
func NewOto(opts Options) *Oto {
	opts = opts.withDefaults()
	return &Oto{
		graph: newGraph(opts.MaxFrames),
		opts:  opts,
	}
}

// Open creates the oto context
func (o *Oto) Open(clientName, serverName string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if serverName != "" {
		log.Printf("oto: server name %q ignored", serverName)
	}

	if o.otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   o.opts.SampleRate,
			ChannelCount: deviceChannels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   o.opts.Latency,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return "", fmt.Errorf("%w: failed to create oto context: %v", ErrServerFailed, err)
		}
		<-readyChan
		o.otoCtx = ctx
	} else if err := o.otoCtx.Resume(); err != nil {
		return "", fmt.Errorf("%w: failed to resume oto context: %v", ErrServerFailed, err)
	}

	return o.openAs(clientName), nil
}

// SampleRate returns the context rate
func (o *Oto) SampleRate() int {
	return o.opts.SampleRate
}

// RegisterPort registers an output port
func (o *Oto) RegisterPort(name string) (Port, error) {
	return o.registerPort(name)
}

// SetProcessCallback installs the pull callback
func (o *Oto) SetProcessCallback(fn ProcessFunc) error {
	return o.setProcess(fn)
}

// Read is called by the oto player goroutine for more float32 LE frames
func (o *Oto) Read(p []byte) (int, error) {
	const frameBytes = deviceChannels * 4
	n := (len(p) / frameBytes) * frameBytes
	o.renderLE(p[:n])
	return n, nil
}

// Activate creates a persistent player pulling from the graph
func (o *Oto) Activate() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx == nil {
		return ErrNotOpen
	}

	o.activate()
	o.player = o.otoCtx.NewPlayer(o)
	o.player.Play()

	log.Printf("oto: player started at %dHz", o.opts.SampleRate)
	return nil
}

// PhysicalSinks lists the context's output channels
func (o *Oto) PhysicalSinks() ([]string, error) {
	if o.otoCtx == nil {
		return nil, ErrNotOpen
	}
	return o.sinks(), nil
}

// Connect routes a port to an output channel
func (o *Oto) Connect(p Port, sink string) error {
	return o.connect(p, sink)
}

// Deactivate pauses the player and waits for an in-flight Read
func (o *Oto) Deactivate() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.deactivate()
	if o.player != nil {
		o.player.Pause()
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
	}
	return nil
}

// Close suspends the oto context
func (o *Oto) Close() error {
	if err := o.Deactivate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.close()
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}
