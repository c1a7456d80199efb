// ABOUTME: Port graph shared by device-backed engines (pulse, malgo, oto, portaudio, mock)
// ABOUTME: Runs the process callback and interleaves routed ports into device buffers
package engine

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	sinkPrefix     = "system:playback_"
	deviceChannels = 2
)

// graphPort is a port whose buffer is owned by the graph
type graphPort struct {
	name string
	buf  []float32
}

func (p *graphPort) Name() string { return p.name }

func (p *graphPort) Buffer(nframes int) []float32 {
	return p.buf[:nframes]
}

// graph emulates a JACK-style client graph on top of an interleaved
// stereo device callback. Ports get preallocated buffers of maxFrames and
// device requests are served in chunks no larger than that.
type graph struct {
	mu         sync.Mutex // setup only, never taken from render
	open       bool
	clientName string
	maxFrames  int
	ports      []*graphPort
	process    ProcessFunc

	routes [deviceChannels]atomic.Pointer[graphPort]
	active atomic.Bool
	busy   atomic.Int32
}

func newGraph(maxFrames int) *graph {
	return &graph{maxFrames: maxFrames}
}

func (g *graph) openAs(clientName string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = true
	g.clientName = clientName
	return clientName
}

func (g *graph) registerPort(name string) (Port, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.open {
		return nil, ErrNotOpen
	}
	for _, p := range g.ports {
		if p.name == g.clientName+":"+name {
			return nil, fmt.Errorf("%w: port %q already registered", ErrPortRegistration, name)
		}
	}

	p := &graphPort{
		name: g.clientName + ":" + name,
		buf:  make([]float32, g.maxFrames),
	}
	g.ports = append(g.ports, p)
	return p, nil
}

func (g *graph) setProcess(fn ProcessFunc) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.open {
		return ErrNotOpen
	}
	if g.active.Load() {
		return fmt.Errorf("process callback must be set before activation")
	}
	g.process = fn
	return nil
}

func (g *graph) sinks() []string {
	sinks := make([]string, deviceChannels)
	for i := range sinks {
		sinks[i] = sinkPrefix + strconv.Itoa(i+1)
	}
	return sinks
}

func (g *graph) connect(p Port, sink string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	gp, ok := p.(*graphPort)
	if !ok || !g.owns(gp) {
		return fmt.Errorf("port %q does not belong to this client", p.Name())
	}

	idx, err := parseSink(sink)
	if err != nil {
		return err
	}

	g.routes[idx].Store(gp)
	return nil
}

func (g *graph) owns(p *graphPort) bool {
	for _, own := range g.ports {
		if own == p {
			return true
		}
	}
	return false
}

func parseSink(sink string) (int, error) {
	if !strings.HasPrefix(sink, sinkPrefix) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSink, sink)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(sink, sinkPrefix))
	if err != nil || n < 1 || n > deviceChannels {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSink, sink)
	}
	return n - 1, nil
}

func (g *graph) activate() {
	g.active.Store(true)
}

// deactivate stops callback delivery and waits out a render in flight
func (g *graph) deactivate() {
	g.active.Store(false)
	for g.busy.Load() != 0 {
		time.Sleep(time.Millisecond)
	}
}

func (g *graph) close() {
	g.deactivate()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
	g.ports = nil
	g.process = nil
	for i := range g.routes {
		g.routes[i].Store(nil)
	}
}

// period runs the process callback for n frames, returning false when
// the graph is inactive and the device should get silence
func (g *graph) period(n int) bool {
	if !g.active.Load() || g.process == nil {
		return false
	}
	g.process(n)
	return true
}

func (g *graph) sample(ch, i int, live bool) float32 {
	if !live {
		return 0
	}
	p := g.routes[ch].Load()
	if p == nil {
		return 0
	}
	return p.buf[i]
}

// render fills an interleaved stereo float32 device buffer
func (g *graph) render(out []float32) {
	g.busy.Add(1)
	defer g.busy.Add(-1)

	frames := len(out) / deviceChannels
	for done := 0; done < frames; {
		n := min(frames-done, g.maxFrames)
		live := g.period(n)
		for i := 0; i < n; i++ {
			base := (done + i) * deviceChannels
			for ch := 0; ch < deviceChannels; ch++ {
				out[base+ch] = g.sample(ch, i, live)
			}
		}
		done += n
	}
}

// renderLE fills an interleaved stereo float32 little-endian device buffer
func (g *graph) renderLE(out []byte) {
	g.busy.Add(1)
	defer g.busy.Add(-1)

	const frameBytes = deviceChannels * 4
	frames := len(out) / frameBytes
	for done := 0; done < frames; {
		n := min(frames-done, g.maxFrames)
		live := g.period(n)
		for i := 0; i < n; i++ {
			base := (done + i) * frameBytes
			for ch := 0; ch < deviceChannels; ch++ {
				v := g.sample(ch, i, live)
				binary.LittleEndian.PutUint32(out[base+ch*4:], math.Float32bits(v))
			}
		}
		done += n
	}
}
