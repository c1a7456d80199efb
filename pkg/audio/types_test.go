// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion functions and format validation
package audio

import (
	"math"
	"testing"
)

func TestSampleToFloatFullRange(t *testing.T) {
	for v := math.MinInt16; v <= math.MaxInt16; v++ {
		got := SampleToFloat(int16(v), 1.0)
		want := float32(float64(v) / 32768.0)
		if got != want {
			t.Fatalf("sample %d: expected %v, got %v", v, want, got)
		}
	}
}

func TestSampleToFloatEdges(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		volume   float32
		expected float32
	}{
		{"zero", 0, 1.0, 0},
		{"min is exactly -1", -32768, 1.0, -1.0},
		{"max", 32767, 1.0, 32767.0 / 32768.0},
		{"minus one", -1, 1.0, -1.0 / 32768.0},
		{"half volume", 16384, 0.5, 0.25},
		{"muted", -32768, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToFloat(tt.input, tt.volume)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestSampleFromBytesSignExtension(t *testing.T) {
	tests := []struct {
		name     string
		lo, hi   byte
		expected int16
	}{
		{"zero", 0x00, 0x00, 0},
		{"one", 0x01, 0x00, 1},
		{"minus one", 0xFF, 0xFF, -1},
		{"min", 0x00, 0x80, -32768},
		{"max", 0xFF, 0x7F, 32767},
		{"0x8001", 0x01, 0x80, -32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromBytes(tt.lo, tt.hi)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestMoveS16ToFloatStride(t *testing.T) {
	samples := []int16{-32768, 16384, 100, -100, 0, 32767}
	pcm := make([]byte, len(samples)*2)
	Int16ToBytes(pcm, samples)

	left := make([]float32, 3)
	right := make([]float32, 3)
	MoveS16ToFloat(left, pcm, 3, BytesPerFrame, 1.0)
	MoveS16ToFloat(right, pcm[BytesPerSample:], 3, BytesPerFrame, 1.0)

	for i := 0; i < 3; i++ {
		if left[i] != float32(samples[i*2])/32768.0 {
			t.Errorf("left[%d]: expected %v, got %v", i, float32(samples[i*2])/32768.0, left[i])
		}
		if right[i] != float32(samples[i*2+1])/32768.0 {
			t.Errorf("right[%d]: expected %v, got %v", i, float32(samples[i*2+1])/32768.0, right[i])
		}
	}
	if left[0] != -1.0 {
		t.Errorf("expected -32768 to convert to -1.0, got %v", left[0])
	}
}

func TestFloatToSampleClipping(t *testing.T) {
	tests := []struct {
		input    float32
		expected int16
	}{
		{0, 0},
		{-1.0, -32768},
		{1.0, 32767},
		{2.0, 32767},
		{-2.0, -32768},
		{0.5, 16384},
	}

	for _, tt := range tests {
		result := FloatToSample(tt.input)
		if result != tt.expected {
			t.Errorf("FloatToSample(%v): expected %d, got %d", tt.input, tt.expected, result)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	samples := []int16{1, -1, 32767, -32768}
	buf := make([]byte, 8)
	Int16ToBytes(buf, samples)

	out := make([]int16, 4)
	n := BytesToInt16(out, buf)
	if n != 4 {
		t.Fatalf("expected 4 samples, got %d", n)
	}
	for i := range samples {
		if out[i] != samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], out[i])
		}
	}
}

func TestFormatValidate(t *testing.T) {
	if err := StreamFormat(44100).Validate(44100); err != nil {
		t.Errorf("expected stream format to validate, got %v", err)
	}

	bad := []Format{
		{SampleRate: 48000, Channels: 2, BitDepth: 16},
		{SampleRate: 44100, Channels: 1, BitDepth: 16},
		{SampleRate: 44100, Channels: 2, BitDepth: 24},
	}
	for _, f := range bad {
		if err := f.Validate(44100); err == nil {
			t.Errorf("expected %s to be rejected", f)
		}
	}

	if got := StreamFormat(44100).BytesPerSecond(); got != 176400 {
		t.Errorf("expected 176400 bytes/s, got %d", got)
	}
}
