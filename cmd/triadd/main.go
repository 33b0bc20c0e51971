// Triadd is a coordination daemon for paired coding agents.
//
// It exposes MCP tools over stdio that let a Writer agent and a Validator
// agent work a task through a bounded submit/review loop, while a local
// Observer model decomposes the request into acceptance criteria and
// produces advisory alignment checks.
//
// Usage:
//
//	# Start the MCP server on stdio
//	triadd serve
//
//	# Use a specific config file
//	triadd serve --config /etc/triadd/config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "triadd",
	Short: "Coordination daemon for paired coding agents",
	Long: `triadd coordinates a Writer agent and a Validator agent through a
bounded submit/review loop, driven by MCP tools over stdio. A local
Observer model decomposes each request into acceptance criteria and
provides advisory alignment checks on submissions.`,
	Version: version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("triadd by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/triadd/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
