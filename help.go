// ABOUTME: Command line flags and colored usage text
// ABOUTME: Registers pflag options and prints help with fatih/color
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/glebpom/shairport/pkg/audio/engine"
	"github.com/glebpom/shairport/pkg/audio/output"
	flag "github.com/spf13/pflag"
)

var (
	flagClientName    string
	flagServerName    string
	flagEngine        string
	flagRate          int
	flagBufferSeconds int
	flagOverflow      string
	flagListen        string
	flagNATS          string
	flagMDNS          bool
	flagNoTUI         bool
	flagLogFile       string
	flagVolume        float32
	flagHelp          bool
	flagVersion       bool
)

func init() {
	defaultEngine := os.Getenv("SHAIRPORT_ENGINE")
	if defaultEngine == "" {
		defaultEngine = engine.KindJack
	}

	flag.StringVarP(&flagClientName, "client-name", "c", "shairport", "Engine client name")
	flag.StringVarP(&flagServerName, "server-name", "s", "", "Engine server name")
	flag.StringVarP(&flagEngine, "engine", "e", defaultEngine, "Audio engine")
	flag.IntVarP(&flagRate, "rate", "r", 44100, "Sample rate")
	flag.IntVarP(&flagBufferSeconds, "buffer-seconds", "b", 10, "Ring buffer size, in seconds")
	flag.StringVarP(&flagOverflow, "overflow", "", "block", "Full buffer policy (block, drop-new)")
	flag.StringVarP(&flagListen, "listen", "l", "", "WebSocket receiver address")
	flag.StringVarP(&flagNATS, "nats", "n", "", "NATS server URL")
	flag.BoolVarP(&flagMDNS, "mdns", "m", false, "Advertise the WebSocket receiver via mDNS")
	flag.BoolVarP(&flagNoTUI, "no-tui", "", false, "Disable TUI, use streaming logs instead")
	flag.StringVarP(&flagLogFile, "log-file", "", "shairport.log", "Log file path")
	flag.Float32VarP(&flagVolume, "volume", "", 1.0, "Initial volume, 0 to 1")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Play PCM streams through a real-time audio engine

Usage: shairport [OPTION]... [FILE]

Engine:
  -c, --client-name=NAME   Engine client name (default: shairport)
  -s, --server-name=NAME   Engine server name (default: engine default)
  -e, --engine=KIND        Audio engine: %s
                           (default: jack, or $SHAIRPORT_ENGINE)
  -r, --rate=HZ            Sample rate (default: 44100)
  -b, --buffer-seconds=N   Ring buffer size, in seconds (default: 10)
      --overflow=POLICY    Full buffer policy: block or drop-new (default: block)
      --volume=GAIN        Initial volume, 0 to 1 (default: 1)

Receivers:
  -l, --listen=ADDR        WebSocket receiver address, e.g. :8930
  -m, --mdns               Advertise the WebSocket receiver via mDNS
  -n, --nats=URL           NATS server URL, e.g. nats://localhost:4222

Miscellaneous:
      --no-tui             Disable TUI, use streaming logs instead
      --log-file=FILE      Log file path (default: shairport.log)
  -h, --help               Prints this help message and exits
  -v, --version            Prints version information and exits

With FILE (wav, mp3, flac, ogg or raw s16le) and no receivers, the file is
played once and shairport exits.

Output options:
`

// help prints usage information
func help() {
	title := color.New(color.FgCyan, color.Bold)
	note := color.New(color.FgYellow)

	title.Println("shairport")
	fmt.Printf(helpString, strings.Join(engine.Kinds(), ", "))
	output.Help(os.Stdout)
	fmt.Println()
	note.Println("The stream must be 16-bit stereo at the configured rate; nothing is resampled.")
}
