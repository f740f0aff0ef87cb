// Foldctl computes and manipulates code-folding regions.
//
// Usage:
//
//	# Print the regions of some files
//	foldctl ranges main.go util.go
//
//	# Print a file with every level-2 region collapsed
//	foldctl fold --level 2 main.go
//
//	# Browse a file interactively
//	foldctl view main.go
//
//	# Serve the HTTP API or the MCP stdio server
//	foldctl serve
//	foldctl mcp
//
// Configuration is read from ~/.config/foldkit/config.yaml and FOLDKIT_*
// environment variables. See internal/config for details.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/foldkit/internal/document"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// verbose enables debug logging.
	verbose bool
	// tabSize is the tab width used for indentation.
	tabSize int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "foldctl",
	Short: "Compute and manipulate code-folding regions",
	Long: `foldctl computes folding regions for source files using indentation,
the built-in Go syntax source or an external language server, and applies
fold commands to them.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/foldkit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&tabSize, "tab-size", document.DefaultTabSize, "tab width in columns")

	rootCmd.AddCommand(rangesCmd)
	rootCmd.AddCommand(foldCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}
