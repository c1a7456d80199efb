// ABOUTME: Engine package documentation
// ABOUTME: Describes the host engine contract and the available backends
// Package engine abstracts the host audio engine the output bridge renders into.
//
// An Engine is modelled on a JACK client: it is opened under a client name,
// output ports are registered on it, a periodic process callback is installed,
// the client is activated and its ports are wired to physical playback sinks.
//
// Backends:
//   - jack: a real JACK client (build with -tags jack)
//   - pulse: PulseAudio/PipeWire playback stream, pure Go
//   - malgo: miniaudio playback device
//   - oto: ebitengine/oto player
//   - portaudio: default PortAudio output (build with -tags portaudio)
//   - mock: deterministic engine for tests, driven with Pull
//
// Device-backed engines emulate the JACK graph: each device channel is
// exposed as a sink named system:playback_N.
//
// Example:
//
//	eng, err := engine.New("pulse", engine.DefaultOptions())
//	name, err := eng.Open("shairport", "")
//	left, err := eng.RegisterPort("left")
//	err = eng.SetProcessCallback(func(nframes int) { fill(left.Buffer(nframes)) })
//	err = eng.Activate()
package engine
