package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Exit codes
const (
	exitOK       = 0
	exitConfig   = 1
	exitUpstream = 2
	exitRuntime  = 3
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitConfig)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ferry",
	Short: "Ferry - Deposit orchestration engine",
	Long: `Ferry transfers custody of scholarly submissions from an upstream
repository into downstream archival repositories. It consumes
submission events, packages content per target, transmits it over the
target's protocol, and tracks each deposit's lifecycle until the
submission reaches a terminal status.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Ferry version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(refreshCmd)
}
