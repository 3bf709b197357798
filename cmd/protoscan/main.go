// Command protoscan is a thin CLI around the inspection core, useful for
// feeding one captured payload through a protocol engine for manual triage.
// It is a demonstration harness, not part of the core's boundary contract:
// a real host embeds internal/dnsproto, internal/nfs4proto, and
// internal/ftpproto directly, via pkg/sensorhost.
package main

import (
	"fmt"
	"os"

	"github.com/flowlayer/protoscan/cmd/protoscan/commands"
	"github.com/flowlayer/protoscan/internal/logger"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		logger.Error("protoscan exiting with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
