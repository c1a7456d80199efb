// ABOUTME: Output bridge package documentation
// ABOUTME: Describes the feeder, the render callback and the lifecycle
// Package output bridges decoded network audio to a real-time engine callback.
//
// An Output owns a ring buffer shared by two actors:
//   - the feeder (Play, Write), running on the caller's goroutine, which
//     appends interleaved s16le stereo frames and waits for free space
//     according to the configured OverflowPolicy
//   - the render callback, pulled by the engine once per period, which
//     converts frames to float32 with the current volume and pads any
//     shortfall with silence
//
// Lifecycle:
//
//	out, err := output.New(eng, output.Config{ClientName: "shairport"})
//	err = out.Init()          // open, ports, callback, activate, connect
//	err = out.Start(44100)    // any other rate is rejected
//	err = out.Play(samples, frames)
//	err = out.Stop(ctx)       // drains the buffer
//	err = out.Deinit()
package output
