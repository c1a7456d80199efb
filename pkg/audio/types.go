// ABOUTME: Audio type definitions for the output bridge
// ABOUTME: Defines the single supported stream format and sample conversions
package audio

import (
	"encoding/binary"
	"fmt"
)

const (
	// DefaultSampleRate is the only rate the bridge accepts unless configured otherwise
	DefaultSampleRate = 44100

	// Channels is the fixed channel count of the network stream
	Channels = 2

	// BitDepth is the fixed sample width of the network stream
	BitDepth = 16

	// BytesPerSample is the size of one int16 sample
	BytesPerSample = 2

	// BytesPerFrame is one sample per channel (L+R, 4 bytes)
	BytesPerFrame = Channels * BytesPerSample

	// SampleMax16Bit is the divisor mapping int16 onto [-1.0, 1.0)
	SampleMax16Bit = 32768.0
)

// Format describes a PCM stream format
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// StreamFormat returns the network stream format at the given rate
func StreamFormat(sampleRate int) Format {
	return Format{
		SampleRate: sampleRate,
		Channels:   Channels,
		BitDepth:   BitDepth,
	}
}

// Validate checks the format against what the bridge can play at rate
func (f Format) Validate(rate int) error {
	if f.Channels != Channels {
		return fmt.Errorf("unsupported channel count: %d (supported: %d)", f.Channels, Channels)
	}
	if f.BitDepth != BitDepth {
		return fmt.Errorf("unsupported bit depth: %d (supported: %d)", f.BitDepth, BitDepth)
	}
	if f.SampleRate != rate {
		return fmt.Errorf("unsupported sample rate: %d (supported: %d)", f.SampleRate, rate)
	}
	return nil
}

// BytesPerSecond returns the byte rate of the stream
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * (f.BitDepth / 8)
}

// String returns a short human-readable form
func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch %d-bit", f.SampleRate, f.Channels, f.BitDepth)
}

// SampleToFloat converts a signed 16-bit sample to float32 with volume applied
func SampleToFloat(sample int16, volume float32) float32 {
	return float32(sample) / SampleMax16Bit * volume
}

// SampleFromBytes decodes a little-endian int16 sample, sign-extending arithmetically
func SampleFromBytes(lo, hi byte) int16 {
	return int16(uint16(lo) | uint16(hi)<<8)
}

// FloatToSample converts a float32 in [-1, 1] to int16 with clipping
func FloatToSample(v float32) int16 {
	s := v * SampleMax16Bit
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}

// MoveS16ToFloat converts n interleaved int16 samples from src into dst.
// src is read every stride bytes starting at offset 0, so the caller
// selects a channel by slicing src.
func MoveS16ToFloat(dst []float32, src []byte, n, stride int, volume float32) {
	for i := 0; i < n; i++ {
		p := i * stride
		dst[i] = SampleToFloat(SampleFromBytes(src[p], src[p+1]), volume)
	}
}

// Int16ToBytes encodes interleaved samples as little-endian bytes into dst.
// dst must hold len(samples)*2 bytes.
func Int16ToBytes(dst []byte, samples []int16) {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(s))
	}
}

// BytesToInt16 decodes little-endian bytes into interleaved samples
func BytesToInt16(dst []int16, src []byte) int {
	n := len(src) / BytesPerSample
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*2:]))
	}
	return n
}
