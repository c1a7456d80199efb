// ABOUTME: Tests for bridge application orchestration
// ABOUTME: Runs the bridge against the mock engine with local file playback
package app

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebpom/shairport/internal/receiver"
	"github.com/glebpom/shairport/pkg/audio/decode"
	"github.com/glebpom/shairport/pkg/audio/engine"
)

func writeRaw(t *testing.T, frames int, value int16) string {
	t.Helper()
	buf := make([]byte, frames*4)
	for i := 0; i < frames*2; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(value))
	}
	path := filepath.Join(t.TempDir(), "tone.raw")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

// pull drives the mock engine like a device thread and records nonzero left samples
func pull(eng *engine.Mock) (stop func() []float32) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	var heard []float32
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				left, _ := eng.PullChannels(256)
				for _, v := range left {
					if v != 0 {
						heard = append(heard, v)
					}
				}
			}
		}
	}()
	return func() []float32 {
		close(done)
		wg.Wait()
		return heard
	}
}

func TestNewWithEngineDefaults(t *testing.T) {
	b, err := NewWithEngine(Config{}, engine.NewMock(engine.DefaultOptions()))
	if err != nil {
		t.Fatalf("NewWithEngine failed: %v", err)
	}

	if b.config.SampleRate != 44100 {
		t.Errorf("expected default rate 44100, got %d", b.config.SampleRate)
	}
	if b.config.StatsInterval != 5*time.Second {
		t.Errorf("expected stats interval 5s, got %v", b.config.StatsInterval)
	}
	if b.config.Volume != 1 {
		t.Errorf("expected volume 1, got %v", b.config.Volume)
	}
	if b.Output() == nil {
		t.Fatal("expected output to be created")
	}
	if b.id == "" {
		t.Error("expected bridge id to be assigned")
	}
}

func TestNewRejectsUnknownEngine(t *testing.T) {
	if _, err := New(Config{Engine: "bogus"}); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestRunPlaysFileThenExits(t *testing.T) {
	eng := engine.NewMock(engine.DefaultOptions())
	b, err := NewWithEngine(Config{
		ClientName: "bridge-test",
		File:       writeRaw(t, 2048, 8192),
		Volume:     0.5,
	}, eng)
	if err != nil {
		t.Fatalf("NewWithEngine failed: %v", err)
	}

	stop := pull(eng)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	heard := stop()

	if ctx.Err() != nil {
		t.Fatal("Run did not return after the file finished")
	}
	if len(heard) != 2048 {
		t.Errorf("expected 2048 audible frames, got %d", len(heard))
	}
	for _, v := range heard {
		if v != 0.125 {
			t.Fatalf("expected 0.25 at half volume, got %v", v)
		}
	}

	calls := eng.Calls()
	if calls[len(calls)-1] != "close" {
		t.Errorf("expected engine closed last, got %v", calls)
	}
	if eng.Active() {
		t.Error("expected engine deactivated")
	}
}

func TestRunFailsWhenInitFails(t *testing.T) {
	eng := engine.NewMock(engine.DefaultOptions())
	eng.SetOpenError(errors.New("no server"))

	b, err := NewWithEngine(Config{File: writeRaw(t, 16, 1)}, eng)
	if err != nil {
		t.Fatalf("NewWithEngine failed: %v", err)
	}

	if err := b.Run(context.Background()); !errors.Is(err, engine.ErrServerFailed) {
		t.Fatalf("expected ErrServerFailed, got %v", err)
	}
}

func TestRunRejectsFileAtOtherRate(t *testing.T) {
	eng := engine.NewMock(engine.Options{SampleRate: 48000})
	b, err := NewWithEngine(Config{SampleRate: 48000, File: writeRaw(t, 16, 1)}, eng)
	if err != nil {
		t.Fatalf("NewWithEngine failed: %v", err)
	}

	if err := b.Run(context.Background()); !errors.Is(err, decode.ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestRunFileWaitsForFreeOutput(t *testing.T) {
	eng := engine.NewMock(engine.DefaultOptions())
	b, err := NewWithEngine(Config{File: writeRaw(t, 16, 1)}, eng)
	if err != nil {
		t.Fatalf("NewWithEngine failed: %v", err)
	}
	b.guard.Acquire("ws:someone")

	if err := b.Run(context.Background()); !errors.Is(err, receiver.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	eng := engine.NewMock(engine.DefaultOptions())
	b, err := NewWithEngine(Config{Listen: "127.0.0.1:0", StatsInterval: 10 * time.Millisecond}, eng)
	if err != nil {
		t.Fatalf("NewWithEngine failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- b.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if !eng.Active() {
		t.Error("expected engine active while serving")
	}
	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if eng.Active() {
		t.Error("expected engine deactivated after Run")
	}
}

func TestSplitPort(t *testing.T) {
	tests := []struct {
		addr    string
		port    int
		wantErr bool
	}{
		{":8080", 8080, false},
		{"0.0.0.0:9000", 9000, false},
		{"localhost", 0, true},
		{"host:abc", 0, true},
		{":0", 0, true},
	}

	for _, tt := range tests {
		_, port, err := splitPort(tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("splitPort(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			continue
		}
		if port != tt.port {
			t.Errorf("splitPort(%q) port = %d, want %d", tt.addr, port, tt.port)
		}
	}
}
