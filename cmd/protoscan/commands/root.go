// Package commands implements the protoscan CLI's command tree.
package commands

import (
	"os"

	"github.com/flowlayer/protoscan/internal/config"
	"github.com/flowlayer/protoscan/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "protoscan",
	Short: "protoscan - application-layer protocol inspection core",
	Long: `protoscan dissects reassembled DNS, NFSv4-over-SunRPC, and FTP
control-channel payloads into structured transactions for a host-driven
detection engine.

This binary is a thin demonstration and debugging harness around the core
library; it is not part of the core's boundary contract. A real host embeds
internal/dnsproto, internal/nfs4proto, and internal/ftpproto directly.

Use "protoscan [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml, then $XDG_CONFIG_HOME/protoscan/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(probeCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	cobra.OnInitialize(initLogging)
}

// initLogging loads the host config's Logging section (internal/config) and
// points internal/logger at it before any subcommand runs. A config load
// failure here isn't fatal to the CLI's own startup and is not reported:
// the logger simply keeps its own defaults.
func initLogging() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return
	}
	_ = logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
