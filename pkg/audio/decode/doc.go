// ABOUTME: Audio decoder package for local files and network packets
// ABOUTME: Provides Source for WAV, MP3, FLAC, Ogg Vorbis and raw PCM, and Decoder for Opus packets
// Package decode turns encoded audio into interleaved int16 stereo samples
// ready for the output bridge.
//
// Sources stream whole files: WAV, MP3, FLAC, Ogg Vorbis and headerless
// s16le PCM. Decoders handle one network packet at a time (Opus).
//
// Nothing here resamples or remixes. Use Check to reject sources the
// bridge cannot play.
//
// Example:
//
//	src, err := decode.Open("song.flac")
//	if err := decode.Check(src, 44100); err != nil { ... }
//	n, err := src.Read(samples)
package decode
