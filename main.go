// ABOUTME: Entry point for the shairport audio bridge
// ABOUTME: Parses CLI flags, sets up logging and runs the bridge until interrupted
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/glebpom/shairport/internal/app"
	"github.com/glebpom/shairport/internal/version"
	"github.com/glebpom/shairport/pkg/audio/output"
	flag "github.com/spf13/pflag"
)

func main() {
	flag.Parse()

	if flagHelp {
		help()
		return
	}
	if flagVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	var file string
	switch flag.NArg() {
	case 0:
	case 1:
		file = flag.Arg(0)
	default:
		log.Fatalf("expected at most one file, got %d", flag.NArg())
	}

	overflow, err := output.ParseOverflowPolicy(flagOverflow)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// The TUI needs something to show; a lone file plays with streaming logs
	useTUI := !flagNoTUI && (flagListen != "" || flagNATS != "")

	f, err := os.OpenFile(flagLogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s %s on %s engine", version.Product, version.Version, flagEngine)

	bridge, err := app.New(app.Config{
		Engine:        flagEngine,
		ClientName:    flagClientName,
		ServerName:    flagServerName,
		SampleRate:    flagRate,
		BufferSeconds: flagBufferSeconds,
		Overflow:      overflow,
		Volume:        flagVolume,
		Muted:         flagVolume == 0,
		Listen:        flagListen,
		NATSURL:       flagNATS,
		MDNS:          flagMDNS,
		File:          file,
		UseTUI:        useTUI,
	})
	if err != nil {
		log.Fatalf("Failed to create bridge: %v", err)
	}

	if flagListen == "" && flagNATS == "" && file == "" {
		log.Printf("No receivers or file given, playing silence until interrupted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bridge.Run(ctx); err != nil {
		// Fatalf skips deferred calls; the bridge has already released the engine
		log.Fatalf("shairport: %v", err)
	}
	log.Printf("Shutdown complete")
}
