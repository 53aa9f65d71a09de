package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "memoctl",
		Short:        "Explore how a memoized function caches calls over time",
		Version:      Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error or none (env MEMOIZE_LOG_LEVEL)")
	root.PersistentFlags().String("log-format", "", "log format: console or json (env MEMOIZE_LOG_FORMAT)")
	root.AddCommand(newReplayCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
