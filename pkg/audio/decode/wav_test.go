// ABOUTME: Tests for the WAV source
// ABOUTME: Round-trips samples through a go-audio/wav encoded file
package decode

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, rate, bitDepth, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to finish wav: %v", err)
	}
	return path
}

func TestWAVRoundTrip(t *testing.T) {
	data := []int{0, 0, 16384, -16384, 32767, -32768, -1, 1}
	path := writeWAV(t, 44100, 16, 2, data)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer src.Close()

	if src.SampleRate() != 44100 || src.Channels() != 2 {
		t.Fatalf("expected 44100Hz stereo, got %dHz %dch", src.SampleRate(), src.Channels())
	}
	if err := Check(src, 44100); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	var got []int16
	samples := make([]int16, 4)
	for {
		n, err := src.Read(samples)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		got = append(got, samples[:n]...)
	}

	if len(got) != len(data) {
		t.Fatalf("expected %d samples, got %d", len(data), len(got))
	}
	for i := range data {
		if int(got[i]) != data[i] {
			t.Errorf("sample %d: expected %d, got %d", i, data[i], got[i])
		}
	}
}

func TestWAVMonoFailsCheck(t *testing.T) {
	path := writeWAV(t, 44100, 16, 1, []int{1, 2, 3, 4})

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer src.Close()

	if err := Check(src, 44100); err == nil {
		t.Fatal("expected mono wav to be rejected")
	}
}

func TestWAVInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not a riff file"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected error for invalid wav")
	}
}
