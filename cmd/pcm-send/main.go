// ABOUTME: Streams a local audio file to a running shairport bridge
// ABOUTME: Finds the bridge via mDNS unless a URL is given, then paces PCM over websocket
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebpom/shairport/internal/discovery"
	"github.com/glebpom/shairport/pkg/audio/decode"
	flag "github.com/spf13/pflag"
)

var (
	flagURL     string
	flagTimeout time.Duration
	flagFast    bool
	flagCodec   string
)

func init() {
	flag.StringVarP(&flagURL, "url", "u", "", "Bridge websocket URL (default: discover via mDNS)")
	flag.DurationVarP(&flagTimeout, "discover-timeout", "t", 3*time.Second, "How long to browse for bridges")
	flag.StringVarP(&flagCodec, "codec", "c", "pcm", "Stream codec (pcm, opus at 48000 Hz)")
	flag.BoolVarP(&flagFast, "fast", "f", false, "Send as fast as the bridge accepts instead of in real time")
}

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: pcm-send [OPTION]... FILE")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := decode.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer src.Close()

	url := flagURL
	if url == "" {
		url, err = discover(ctx, src.SampleRate())
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	log.Printf("Sending %s (%d Hz) to %s", src.Title(), src.SampleRate(), url)

	start := time.Now()
	frames, err := send(ctx, url, src, flagCodec, !flagFast)
	if err != nil {
		log.Fatalf("Send failed after %d frames: %v", frames, err)
	}
	log.Printf("Sent %d frames in %v", frames, time.Since(start).Round(time.Millisecond))
}

// discover returns the URL of the first bridge running at rate
func discover(ctx context.Context, rate int) (string, error) {
	log.Printf("Browsing for bridges...")
	bridges, err := discovery.Lookup(ctx, flagTimeout)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	for _, b := range bridges {
		if b.SampleRate == rate {
			log.Printf("Found bridge %s %s at %s:%d", b.Name, b.Version, b.Host, b.Port)
			return b.URL(), nil
		}
		log.Printf("Skipping bridge %s: runs at %d Hz", b.Name, b.SampleRate)
	}
	return "", fmt.Errorf("no bridge at %d Hz found after %v", rate, flagTimeout)
}
