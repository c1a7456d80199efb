// ABOUTME: Feeder side of the bridge, called by the upstream decoder
// ABOUTME: Writes whole frames gated on free ring space with an explicit overflow policy
package output

import (
	"fmt"
	"time"

	"github.com/glebpom/shairport/pkg/audio"
)

// Play queues frames of interleaved int16 stereo samples (2 samples per frame)
func (o *Output) Play(samples []int16, frames int) error {
	if frames < 0 || frames*audio.Channels > len(samples) {
		return fmt.Errorf("%w: %d frames from %d samples", ErrPartialFrame, frames, len(samples))
	}

	o.feedMu.Lock()
	defer o.feedMu.Unlock()

	size := frames * audio.BytesPerFrame
	if cap(o.playBuf) < size {
		o.playBuf = make([]byte, size)
	}
	buf := o.playBuf[:size]
	audio.Int16ToBytes(buf, samples[:frames*audio.Channels])

	_, err := o.writeLocked(buf)
	return err
}

// Write queues raw interleaved s16le stereo bytes. It implements io.Writer
// for receivers. A short count comes with an error wrapping ErrOverrun.
func (o *Output) Write(p []byte) (int, error) {
	if len(p)%audio.BytesPerFrame != 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrPartialFrame, len(p))
	}

	o.feedMu.Lock()
	defer o.feedMu.Unlock()
	return o.writeLocked(p)
}

func (o *Output) writeLocked(p []byte) (int, error) {
	if !o.playing.Load() || o.ring == nil {
		return 0, ErrNotStarted
	}

	ring := o.ring
	written := 0

	var (
		timeout *time.Timer
		poll    *time.Ticker
	)
	defer func() {
		if timeout != nil {
			timeout.Stop()
		}
		if poll != nil {
			poll.Stop()
		}
	}()

wait:
	for written < len(p) {
		free := ring.Free()
		free -= free % audio.BytesPerFrame
		if n := min(free, len(p)-written); n > 0 {
			ring.Write(p[written : written+n])
			written += n
			continue
		}

		if o.cfg.Overflow == OverflowDropNew {
			break
		}

		if timeout == nil {
			timeout = time.NewTimer(o.cfg.WriteTimeout)
			poll = time.NewTicker(o.cfg.PollInterval)
		}

		select {
		case <-o.drained:
		case <-poll.C:
		case <-timeout.C:
			break wait
		case <-o.done:
			break wait
		}

		if !o.playing.Load() {
			break
		}
	}

	o.writtenBytes.Add(uint64(written))
	if written < len(p) {
		o.droppedBytes.Add(uint64(len(p) - written))
		o.overruns.Add(1)
		return written, fmt.Errorf("%w: accepted %d of %d bytes", ErrOverrun, written, len(p))
	}
	return written, nil
}
