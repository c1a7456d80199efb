// ABOUTME: Main bridge application orchestration
// ABOUTME: Wires engine, output, receivers, discovery, file playback and the TUI under one errgroup
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/glebpom/shairport/internal/discovery"
	"github.com/glebpom/shairport/internal/receiver"
	"github.com/glebpom/shairport/internal/ui"
	"github.com/glebpom/shairport/pkg/audio"
	"github.com/glebpom/shairport/pkg/audio/decode"
	"github.com/glebpom/shairport/pkg/audio/engine"
	"github.com/glebpom/shairport/pkg/audio/output"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config holds bridge configuration
type Config struct {
	Engine        string
	ClientName    string
	ServerName    string
	SampleRate    int
	BufferSeconds int
	Overflow      output.OverflowPolicy

	// Volume is the initial gain (default: 1)
	Volume float32
	Muted  bool

	// Listen enables the websocket receiver on this address
	Listen string

	// NATSURL enables the NATS receiver
	NATSURL string

	// MDNS advertises the websocket receiver
	MDNS bool

	// File is played locally; with no receivers the bridge exits after it
	File string

	UseTUI        bool
	StatsInterval time.Duration
}

// Bridge is the running application
type Bridge struct {
	config Config
	id     string
	out    *output.Output
	guard  *receiver.Guard
	tui    *ui.TUI
}

// New creates a bridge on the configured engine
func New(config Config) (*Bridge, error) {
	eng, err := engine.New(config.Engine, engine.Options{SampleRate: config.SampleRate})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s engine: %w", config.Engine, err)
	}
	return NewWithEngine(config, eng)
}

// NewWithEngine creates a bridge on an existing engine
func NewWithEngine(config Config, eng engine.Engine) (*Bridge, error) {
	if config.StatsInterval == 0 {
		config.StatsInterval = 5 * time.Second
	}
	if config.Volume == 0 {
		config.Volume = 1
	}

	out, err := output.New(eng, output.Config{
		ClientName:    config.ClientName,
		ServerName:    config.ServerName,
		SampleRate:    config.SampleRate,
		BufferSeconds: config.BufferSeconds,
		Overflow:      config.Overflow,
	})
	if err != nil {
		return nil, err
	}

	if config.SampleRate == 0 {
		config.SampleRate = out.SampleRate()
	}

	return &Bridge{
		config: config,
		id:     uuid.New().String(),
		out:    out,
		guard:  &receiver.Guard{},
	}, nil
}

// Output returns the bridge output
func (b *Bridge) Output() *output.Output {
	return b.out
}

// Run initializes the output and serves until ctx is done, the TUI quits,
// a component fails or, without receivers, the file finishes playing.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.out.Init(); err != nil {
		return err
	}
	defer func() {
		if err := b.out.Deinit(); err != nil {
			log.Printf("Error closing output: %v", err)
		}
	}()

	b.out.SetVolume(b.config.Volume)
	b.out.SetMuted(b.config.Muted)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	networked := b.config.Listen != "" || b.config.NATSURL != ""

	if b.config.Listen != "" {
		ws := receiver.NewWSServer(receiver.WSConfig{Addr: b.config.Listen}, b.out, b.guard)
		g.Go(func() error { return ws.Serve(gctx) })

		if b.config.MDNS {
			mgr, err := b.advertise(ws.Path())
			if err != nil {
				log.Printf("Failed to start mDNS advertisement: %v", err)
			} else {
				defer mgr.Stop()
			}
		}
	}

	if b.config.NATSURL != "" {
		r, err := receiver.NewNATSReceiver(receiver.NATSConfig{
			URL:  b.config.NATSURL,
			Name: b.out.ClientName(),
		}, b.out, b.guard)
		if err != nil {
			return err
		}
		g.Go(func() error { return r.Run(gctx) })
	}

	if b.config.File != "" {
		g.Go(func() error {
			err := b.playFile(gctx, b.config.File)
			if !networked {
				cancel()
			}
			return err
		})
	}

	if b.config.UseTUI {
		b.tui = ui.New(b.out)
		b.tui.Update(ui.StatusMsg{
			Engine:     b.config.Engine,
			SampleRate: b.config.SampleRate,
			Listen:     b.config.Listen,
		})
		g.Go(func() error {
			select {
			case <-b.tui.QuitChan():
				log.Printf("TUI quit requested, shutting down...")
				cancel()
			case <-gctx.Done():
				b.tui.Stop()
			}
			return nil
		})
		g.Go(b.tui.Run)
	}

	g.Go(func() error {
		b.statsLoop(gctx)
		return nil
	})

	return g.Wait()
}

func (b *Bridge) advertise(path string) (*discovery.Manager, error) {
	_, port, err := splitPort(b.config.Listen)
	if err != nil {
		return nil, err
	}
	mgr := discovery.NewManager(discovery.Config{
		ServiceName: b.out.ClientName(),
		Port:        port,
		Path:        path,
		SampleRate:  b.config.SampleRate,
		ID:          b.id,
	})
	if err := mgr.Advertise(); err != nil {
		return nil, err
	}
	return mgr, nil
}

// playFile streams a local file into the output at the bridge rate
func (b *Bridge) playFile(ctx context.Context, path string) error {
	src, err := decode.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := decode.Check(src, b.config.SampleRate); err != nil {
		return err
	}

	id := "file:" + uuid.New().String()
	if !b.guard.Acquire(id) {
		return fmt.Errorf("cannot play %s: %w", src.Title(), receiver.ErrBusy)
	}
	defer b.guard.Release(id)

	if err := b.out.Start(src.SampleRate()); err != nil {
		return err
	}
	log.Printf("Playing %s", src.Title())

	samples := make([]int16, 4096)
	for ctx.Err() == nil {
		n, err := src.Read(samples)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", src.Title(), err)
		}

		err = b.out.Play(samples[:n], n/audio.Channels)
		if errors.Is(err, output.ErrNotStarted) {
			break
		}
		if err != nil && !errors.Is(err, output.ErrOverrun) {
			return err
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := b.out.Stop(stopCtx); err != nil {
		log.Printf("Playback of %s ended early: %v", src.Title(), err)
	}
	log.Printf("Finished %s", src.Title())
	return nil
}

// statsLoop logs counter changes and feeds the TUI
func (b *Bridge) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(b.config.StatsInterval)
	defer ticker.Stop()

	fast := time.NewTicker(500 * time.Millisecond)
	defer fast.Stop()

	var last output.Stats
	for {
		select {
		case <-ctx.Done():
			return

		case <-fast.C:
			if b.tui != nil {
				owner := b.guard.Owner()
				b.tui.Update(ui.StatusMsg{Stream: owner, Idle: owner == ""})
			}

		case <-ticker.C:
			s := b.out.Stats()
			if s.Underruns != last.Underruns || s.Overruns != last.Overruns {
				log.Printf("Output: %d underruns (+%d), %d overruns (+%d, %d bytes dropped), %s buffered",
					s.Underruns, s.Underruns-last.Underruns,
					s.Overruns, s.Overruns-last.Overruns, s.DroppedBytes,
					s.BufferedDuration(b.config.SampleRate).Round(time.Millisecond))
			}
			last = s
		}
	}
}
