//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package engine

import "fmt"

// NewPortAudio reports that PortAudio support is compiled out
func NewPortAudio(opts Options) (Engine, error) {
	return nil, fmt.Errorf("%w: portaudio (build with -tags portaudio)", ErrNotSupported)
}
