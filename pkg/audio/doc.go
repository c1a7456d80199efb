// ABOUTME: Audio fundamentals package providing the stream format and conversions
// ABOUTME: Defines Format plus int16 <-> float32 sample conversion helpers
// Package audio provides the fixed network stream format and sample conversions.
//
// The bridge plays a single interleaved stereo stream of signed 16-bit
// little-endian samples. Render-side samples are float32 computed as
//
//	sample / 32768.0 * volume
//
// Example:
//
//	format := audio.StreamFormat(audio.DefaultSampleRate)
//	if err := format.Validate(44100); err != nil {
//	    return err
//	}
//
//	// Convert one channel of an interleaved buffer (stride 4 bytes)
//	audio.MoveS16ToFloat(left, pcm, frames, audio.BytesPerFrame, 1.0)
package audio
