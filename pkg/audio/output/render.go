// ABOUTME: Real-time render callback draining the ring into the engine ports
// ABOUTME: Converts int16 frames to float32 with volume and fills shortfalls with silence
package output

import (
	"github.com/glebpom/shairport/pkg/audio"
	"github.com/glebpom/shairport/pkg/audio/ringbuf"
)

// Render fills left and right with len(left) frames from rb, converting
// each int16 sample with volume applied. Frames the ring cannot supply are
// silence. It returns the number of frames taken from rb.
//
// right must be at least as long as left. Render never allocates, locks
// or blocks. Bytes short of a whole frame stay in rb for the next call.
func Render(rb *ringbuf.Buffer, left, right []float32, volume float32) int {
	nframes := len(left)
	right = right[:nframes]

	if rb.ReadAvailable() == 0 {
		clear(left)
		clear(right)
		return 0
	}

	done := 0
	vec := rb.ReadVector()
	for done < nframes {
		span := vec[0]

		switch {
		case len(span) >= audio.BytesPerFrame:
			n := min(nframes-done, len(span)/audio.BytesPerFrame)
			audio.MoveS16ToFloat(left[done:], span, n, audio.BytesPerFrame, volume)
			audio.MoveS16ToFloat(right[done:], span[audio.BytesPerSample:], n, audio.BytesPerFrame, volume)
			rb.AdvanceRead(n * audio.BytesPerFrame)
			done += n

		case len(span) > 0 && len(span)+len(vec[1]) >= audio.BytesPerFrame:
			// frame straddles the end of the backing array
			var frame [audio.BytesPerFrame]byte
			k := copy(frame[:], span)
			copy(frame[k:], vec[1])
			left[done] = audio.SampleToFloat(audio.SampleFromBytes(frame[0], frame[1]), volume)
			right[done] = audio.SampleToFloat(audio.SampleFromBytes(frame[2], frame[3]), volume)
			rb.AdvanceRead(audio.BytesPerFrame)
			done++

		default:
			clear(left[done:])
			clear(right[done:])
			return done
		}

		vec = rb.ReadVector()
	}

	return done
}

// process is the engine pull callback
func (o *Output) process(nframes int) {
	left := o.left.Buffer(nframes)
	right := o.right.Buffer(nframes)

	if o.flush.Swap(false) {
		o.ring.Reset()
	}

	took := Render(o.ring, left, right, o.effectiveVolume())

	o.renderedFrames.Add(uint64(took))
	if short := nframes - took; short > 0 && o.playing.Load() {
		o.underruns.Add(1)
		o.silentFrames.Add(uint64(short))
	}

	if took > 0 {
		select {
		case o.drained <- struct{}{}:
		default:
		}
	}
}
