// =============================================================================
// main.go - mgba CLI Entry Point
// =============================================================================
//
// mgba is a protocol client for the mGBA control script. It connects to the
// script's TCP socket (localhost:8888 by default) and presses buttons or
// captures the screen, either as one-shot subcommands for use from scripts
// and agents, or through an interactive REPL.
//
// Usage:
//
//	mgba                               Start the REPL (in a terminal)
//	mgba press START                   Press and release a key
//	mgba press --hold 300ms DOWN A     Press several keys in order
//	mgba screenshot                    Capture to screenshots/capture_<id>.png
//	mgba screenshot --base64 shot.png  Capture and print the PNG as base64
//	mgba wait --for 1m                 Block until the emulator is listening
//
// Settings come from mgba.yaml (or --config), overridden by flags.
//
// =============================================================================

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const (
	// version is the current version of the CLI.
	version = "0.3.0"

	// appName is the application name.
	appName = "mgba"
)

// fullTitle returns the application name with version.
func fullTitle() string {
	return fmt.Sprintf("%s v%s", appName, version)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}

func main() {
	// GO CONCEPT: Context Cancellation from Signals
	// ---------------------------------------------
	// signal.NotifyContext returns a context that is cancelled when SIGINT
	// or SIGTERM arrives. Every blocking operation below takes this context,
	// so Ctrl-C interrupts a hold or a pending response and the deferred
	// cleanup still runs. A held key is released before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		printError(err.Error())
		stop()
		os.Exit(1)
	}
}
