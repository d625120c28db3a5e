// Package main provides the entry point for the consentscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for consentscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consentscan",
		Short: "Measure whether websites honor cookie rejection",
		Long: `consentscan is a research crawler that measures whether websites honor
"reject cookies" choices. It drives real browsers through a site list,
interacts with consent banners, and records network traffic, screenshots,
and page features before and after rejection.

A run is a shared data directory: 'init' creates it and seeds the site
queue, any number of 'crawl' supervisors drain the queue concurrently,
and 'compare' analyzes the collected artifacts offline.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewWorkerCmd())
	cmd.AddCommand(NewInjectCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
