// Package main is the entry point for the devsim CLI.
//
// devsim provisions simulated IoT devices. It walks a device through
// credential issuance, enrollment and simulator start-up, shows the
// progress in a terminal UI or over an HTTP dashboard, and keeps a
// registry of the devices it created.
//
// Commands: create, serve, devices, generate-id, version, completion.
//
// For detailed usage information, run:
//
//	devsim --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/devsim/cmd/devsim/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	commands.SetVersionInfo(version, commit, date)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
