package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/viewmodel/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "viewmodel",
		Short: "Inspect and serve reactive viewmodel scenes",
		Long: `viewmodel builds instance trees from scene files through the
reactive binding core and lets you look inside them.

  • inspect resolves every reference in a scene and prints the values
  • serve exposes a live scene over HTTP and WebSocket devtools
  • init writes a starter viewmodel.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Config file (default: nearest viewmodel.json or viewmodel.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable developer warnings and debug logging")

	rootCmd.AddCommand(
		initCmd(),
		inspectCmd(&flags),
		serveCmd(&flags),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
