// ABOUTME: Audio encoder package for the bridge's network stream
// ABOUTME: Provides Encoder interface and implementations for PCM, Opus
// Package encode turns interleaved int16 stereo into stream payloads.
//
// Supports: s16le PCM, Opus (48 kHz only)
//
// Opus packets must carry exactly FrameSize frames; PCM accepts any whole
// number of frames.
//
// Example:
//
//	encoder, err := encode.New("opus", format)
//	packet, err := encoder.Encode(samples[:encoder.FrameSize()*2])
package encode
