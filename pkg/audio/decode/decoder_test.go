// ABOUTME: Tests for source opening, format checks and raw PCM reading
// ABOUTME: Covers extension dispatch, Check and sample scaling
package decode

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebpom/shairport/pkg/audio"
)

func TestOpenUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.aac")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.wav"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestOpenRawPCM(t *testing.T) {
	raw := make([]byte, 8)
	audio.Int16ToBytes(raw, []int16{1, -1, 300, -300})
	path := filepath.Join(t.TempDir(), "take.raw")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer src.Close()

	if src.Title() != "take" {
		t.Errorf("expected title take, got %q", src.Title())
	}
	if err := Check(src, audio.DefaultSampleRate); err != nil {
		t.Errorf("raw pcm should be playable: %v", err)
	}

	samples := make([]int16, 16)
	n, err := src.Read(samples)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := []int16{1, -1, 300, -300}
	if n != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), n)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], samples[i])
		}
	}

	if _, err := src.Read(samples); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestPCMDropsTrailingPartialFrame(t *testing.T) {
	raw := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00}
	src := NewPCM(bytes.NewReader(raw), 44100, "partial")

	samples := make([]int16, 8)
	n, err := src.Read(samples)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected one frame (2 samples), got %d", n)
	}
	if _, err := src.Read(samples); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		src     Source
		wantErr bool
	}{
		{"stereo at rate", NewPCM(bytes.NewReader(nil), 44100, "ok"), false},
		{"wrong rate", NewPCM(bytes.NewReader(nil), 48000, "fast"), true},
		{"mono", &VorbisSource{dec: &fakeOgg{rate: 44100, channels: 1}, title: "mono"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.src, 44100)
			if tt.wantErr && !errors.Is(err, ErrFormatMismatch) {
				t.Errorf("expected ErrFormatMismatch, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestScaleTo16(t *testing.T) {
	tests := []struct {
		v        int32
		bitDepth int
		want     int16
	}{
		{1000, 16, 1000},
		{-32768, 16, -32768},
		{8388607, 24, 32767},
		{-8388608, 24, -32768},
		{256, 24, 1},
		{127, 8, 127 << 8},
		{-128, 8, -32768},
	}

	for _, tt := range tests {
		if got := scaleTo16(tt.v, tt.bitDepth); got != tt.want {
			t.Errorf("scaleTo16(%d, %d) = %d, want %d", tt.v, tt.bitDepth, got, tt.want)
		}
	}
}
