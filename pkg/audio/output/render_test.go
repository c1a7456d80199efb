// ABOUTME: Tests for the render callback conversion
// ABOUTME: Covers silence fill, frame alignment, wrap straddling and volume
package output

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebpom/shairport/pkg/audio"
	"github.com/glebpom/shairport/pkg/audio/ringbuf"
)

func frames(samples ...int16) []byte {
	b := make([]byte, len(samples)*audio.BytesPerSample)
	audio.Int16ToBytes(b, samples)
	return b
}

func newRing(t *testing.T, capacity int) *ringbuf.Buffer {
	t.Helper()
	rb, err := ringbuf.New(capacity)
	require.NoError(t, err)
	return rb
}

func TestRenderEmptyRingIsSilence(t *testing.T) {
	rb := newRing(t, 64)
	left := []float32{1, 1, 1, 1}
	right := []float32{1, 1, 1, 1}

	took := Render(rb, left, right, 1)

	assert.Equal(t, 0, took)
	assert.Equal(t, []float32{0, 0, 0, 0}, left)
	assert.Equal(t, []float32{0, 0, 0, 0}, right)
}

func TestRenderConvertsInterleavedFrames(t *testing.T) {
	rb := newRing(t, 64)
	rb.Write(frames(16384, -16384, -32768, 32767))

	left := make([]float32, 2)
	right := make([]float32, 2)
	took := Render(rb, left, right, 1)

	assert.Equal(t, 2, took)
	assert.Equal(t, []float32{0.5, -1}, left)
	assert.Equal(t, []float32{-0.5, float32(32767) / 32768}, right)
	assert.Equal(t, 0, rb.ReadAvailable())
}

func TestRenderPartialUnderrun(t *testing.T) {
	rb := newRing(t, 64)
	rb.Write(frames(100, 200, 300, 400))

	left := []float32{9, 9, 9, 9, 9}
	right := []float32{9, 9, 9, 9, 9}
	took := Render(rb, left, right, 1)

	assert.Equal(t, 2, took)
	assert.Equal(t, float32(100)/32768, left[0])
	assert.Equal(t, float32(300)/32768, left[1])
	assert.Equal(t, []float32{0, 0, 0}, left[2:])
	assert.Equal(t, []float32{0, 0, 0}, right[2:])
}

func TestRenderWritesExactlyNFrames(t *testing.T) {
	rb := newRing(t, 64)
	for i := 0; i < 8; i++ {
		rb.Write(frames(1000, -1000))
	}

	const guard = float32(42)
	left := []float32{0, 0, 0, guard, guard}
	right := []float32{0, 0, 0, guard, guard}

	took := Render(rb, left[:3], right[:3], 1)

	assert.Equal(t, 3, took)
	assert.Equal(t, []float32{guard, guard}, left[3:])
	assert.Equal(t, []float32{guard, guard}, right[3:])
	assert.Equal(t, 5*audio.BytesPerFrame, rb.ReadAvailable())
}

func TestRenderHoldsPartialFrame(t *testing.T) {
	rb := newRing(t, 64)
	rb.Write(frames(111, 222, 333)) // one and a half frames

	left := make([]float32, 4)
	right := make([]float32, 4)
	took := Render(rb, left, right, 1)

	assert.Equal(t, 1, took)
	assert.Equal(t, 2, rb.ReadAvailable(), "half frame must stay buffered")
	assert.Equal(t, []float32{0, 0, 0}, left[1:])

	rb.Write(frames(444))
	took = Render(rb, left[:1], right[:1], 1)

	assert.Equal(t, 1, took)
	assert.Equal(t, float32(333)/32768, left[0])
	assert.Equal(t, float32(444)/32768, right[0])
}

func TestRenderFrameStraddlingWrap(t *testing.T) {
	rb := newRing(t, 10)
	rb.Write(frames(1, 2, 3, 4))

	left := make([]float32, 2)
	right := make([]float32, 2)
	require.Equal(t, 1, Render(rb, left[:1], right[:1], 1))

	// lands on bytes 8, 9, 0, 1
	require.Equal(t, 4, rb.Write(frames(5, 6)))
	vec := rb.ReadVector()
	require.Len(t, vec[0], 6)
	require.Len(t, vec[1], 2)

	took := Render(rb, left, right, 1)

	assert.Equal(t, 2, took)
	assert.Equal(t, []float32{3.0 / 32768, 5.0 / 32768}, left)
	assert.Equal(t, []float32{4.0 / 32768, 6.0 / 32768}, right)
	assert.Equal(t, 0, rb.ReadAvailable())
}

func TestRenderAppliesVolume(t *testing.T) {
	rb := newRing(t, 64)
	rb.Write(frames(16384, -32768))

	left := make([]float32, 1)
	right := make([]float32, 1)
	Render(rb, left, right, 0.5)

	assert.Equal(t, float32(0.25), left[0])
	assert.Equal(t, float32(-0.5), right[0])

	rb.Write(frames(16384, -32768))
	Render(rb, left, right, 0)
	assert.Equal(t, float32(0), left[0])
	assert.Equal(t, float32(0), right[0])
}

// Arbitrary producer chunk sizes and consumer period sizes must still hand
// out every sample in order and only ever consume whole frames.
func TestRenderRandomizedAlignment(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	rb := newRing(t, 36)

	var produced, consumed []int16
	var pending []byte
	next := int16(1)

	left := make([]float32, 16)
	right := make([]float32, 16)

	for round := 0; round < 2000; round++ {
		if rng.Intn(2) == 0 {
			for len(pending) < 24 {
				pending = append(pending, frames(next)...)
				produced = append(produced, next)
				next++
				if next == 0 {
					next = 1
				}
			}
			n := rb.Write(pending[:rng.Intn(len(pending)+1)])
			pending = pending[n:]
		}

		avail := rb.ReadAvailable()
		nframes := rng.Intn(len(left)) + 1
		took := Render(rb, left[:nframes], right[:nframes], 1)

		require.Equal(t, min(nframes, avail/audio.BytesPerFrame), took)
		require.Equal(t, avail-took*audio.BytesPerFrame, rb.ReadAvailable())
		for i := 0; i < took; i++ {
			consumed = append(consumed,
				int16(left[i]*audio.SampleMax16Bit),
				int16(right[i]*audio.SampleMax16Bit))
		}
		for i := took; i < nframes; i++ {
			require.Zero(t, left[i])
			require.Zero(t, right[i])
		}
	}

	require.NotEmpty(t, consumed)
	assert.Equal(t, produced[:len(consumed)], consumed)
}
