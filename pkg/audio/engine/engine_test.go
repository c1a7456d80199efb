// ABOUTME: Tests for the engine registry
// ABOUTME: Verifies lookup, defaults and compiled-out backends
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{"jack", "malgo", "mock", "oto", "portaudio", "pulse"}, Kinds())
}

func TestNewUnknown(t *testing.T) {
	eng, err := New("alsa", DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.Nil(t, eng)
}

func TestNewMockAppliesDefaults(t *testing.T) {
	eng, err := New(KindMock, Options{})
	require.NoError(t, err)
	assert.Equal(t, 44100, eng.SampleRate())

	eng, err = New(KindMock, Options{SampleRate: 48000})
	require.NoError(t, err)
	assert.Equal(t, 48000, eng.SampleRate())
}

func TestDeviceEnginesImplementEngine(t *testing.T) {
	var _ Engine = (*Mock)(nil)
	var _ Engine = (*Malgo)(nil)
	var _ Engine = (*Oto)(nil)
	var _ Engine = (*Pulse)(nil)
}
