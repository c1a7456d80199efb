//go:build !jack

// ABOUTME: JACK stub when libjack is not available
// ABOUTME: Provides compile-time placeholder when built without the jack tag
package engine

import "fmt"

// NewJack reports that JACK support is compiled out
func NewJack(opts Options) (Engine, error) {
	return nil, fmt.Errorf("%w: jack (build with -tags jack)", ErrNotSupported)
}
