// ABOUTME: WebSocket sender for PCM streams
// ABOUTME: Writes the stream header then binary s16le chunks, paced to the sample rate
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/glebpom/shairport/internal/receiver"
	"github.com/glebpom/shairport/pkg/audio"
	"github.com/glebpom/shairport/pkg/audio/decode"
	"github.com/glebpom/shairport/pkg/audio/encode"
	"github.com/gorilla/websocket"
)

// chunk is the audio carried by one binary message
const chunk = 20 * time.Millisecond

// lead is how far ahead of real time a paced sender may run
const lead = 200 * time.Millisecond

// send streams src to the bridge at url as codec and returns the frames sent
func send(ctx context.Context, url string, src decode.Source, codec string, realtime bool) (int, error) {
	format := audio.Format{SampleRate: src.SampleRate(), Channels: src.Channels(), BitDepth: audio.BitDepth}
	enc, err := encode.New(codec, format)
	if err != nil {
		return 0, err
	}
	defer enc.Close()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close()

	header := receiver.Header{
		Codec:      codec,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
	}
	if err := conn.WriteJSON(header); err != nil {
		return 0, fmt.Errorf("failed to send header: %w", err)
	}

	// The bridge only talks back to close the stream
	closed := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closed <- err
				return
			}
		}
	}()

	chunkFrames := enc.FrameSize()
	if chunkFrames == 0 {
		chunkFrames = src.SampleRate() * int(chunk/time.Millisecond) / 1000
	}
	samples := make([]int16, chunkFrames*audio.Channels)

	start := time.Now()
	frames := 0
	for {
		select {
		case <-ctx.Done():
			return frames, ctx.Err()
		case err := <-closed:
			return frames, fmt.Errorf("bridge closed the stream: %w", err)
		default:
		}

		n, err := fill(src, samples)
		if err != nil {
			return frames, fmt.Errorf("failed to read %s: %w", src.Title(), err)
		}
		if n == 0 {
			break
		}

		payload := samples[:n]
		if enc.FrameSize() > 0 {
			// fixed-size codecs get the last packet padded with silence
			clear(samples[n:])
			payload = samples
		}
		data, err := enc.Encode(payload)
		if err != nil {
			return frames, err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return frames, fmt.Errorf("failed to send audio: %w", err)
		}
		frames += len(payload) / audio.Channels

		if realtime {
			played := time.Duration(frames) * time.Second / time.Duration(src.SampleRate())
			if ahead := played - time.Since(start) - lead; ahead > 0 {
				time.Sleep(ahead)
			}
		}
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of stream")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		return frames, fmt.Errorf("failed to close stream: %w", err)
	}

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
	}
	return frames, nil
}

// fill reads from src until samples is full or the source ends
func fill(src decode.Source, samples []int16) (int, error) {
	total := 0
	for total < len(samples) {
		n, err := src.Read(samples[total:])
		total += n
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}
