package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	verbose    bool
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "xqcrawl",
	Short: "Incremental Xueqiu post crawler",
	Long: `xqcrawl incrementally fetches a Xueqiu user's posts into local files.

Features:
  - Resume support: only posts newer than the last run are fetched
  - Randomized request pacing and exponential-backoff retries
  - Cookie-based session with expiry detection
  - Browser fallback channel for anti-bot challenges
  - Secure cookie storage in the system keychain

Each run reads the per-user crawl state, streams the timeline newest
first, stops at the last crawled post, and persists the new watermark
even when interrupted.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default searches config/settings.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.SetVersionTemplate(`xqcrawl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
