// ABOUTME: Tests for the FLAC source
// ABOUTME: Feeds hand-built frames to check interleaving and bit depth scaling
package decode

import (
	"bytes"
	"io"
	"testing"

	"github.com/mewkiz/flac/frame"
)

type fakeFLAC struct {
	frames []*frame.Frame
}

func (f *fakeFLAC) ParseNext() (*frame.Frame, error) {
	if len(f.frames) == 0 {
		return nil, io.EOF
	}
	fr := f.frames[0]
	f.frames = f.frames[1:]
	return fr, nil
}

func stereoFrame(left, right []int32) *frame.Frame {
	return &frame.Frame{
		Header: frame.Header{BlockSize: uint16(len(left))},
		Subframes: []*frame.Subframe{
			{Samples: left},
			{Samples: right},
		},
	}
}

func TestFLACInterleavesAcrossFrames(t *testing.T) {
	stream := &fakeFLAC{frames: []*frame.Frame{
		stereoFrame([]int32{1, 2, 3}, []int32{-1, -2, -3}),
		stereoFrame([]int32{4}, []int32{-4}),
	}}
	src := &FLACSource{stream: stream, rate: 44100, channels: 2, bitDepth: 16, title: "fake"}

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

	want := []int16{1, -1, 2, -2, 3, -3, 4, -4}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestFLAC24BitScaling(t *testing.T) {
	stream := &fakeFLAC{frames: []*frame.Frame{
		stereoFrame([]int32{8388607}, []int32{-8388608}),
	}}
	src := &FLACSource{stream: stream, rate: 48000, channels: 2, bitDepth: 24}

	samples := make([]int16, 2)
	if _, err := src.Read(samples); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if samples[0] != 32767 || samples[1] != -32768 {
		t.Errorf("expected [32767 -32768], got %v", samples)
	}
}

func TestNewFLACInvalidData(t *testing.T) {
	if _, err := NewFLAC(bytes.NewReader([]byte("fLaC")), "bad"); err == nil {
		t.Fatal("expected error for truncated flac")
	}
}
