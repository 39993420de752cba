package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ganymede",
	Short: "Ganymede - agent safety evaluation harness",
	Long: `Ganymede is an evaluation harness for testing whether a tool-using
software agent violates domain-specific safety rules while completing a
multi-step business task.

Each episode presents the agent with an evolving case, accepts actions
(free text or structured capability calls), applies them to scenario
state, and scores the outcome along two axes: task quality and
safety-rule compliance. Every step is recorded in an append-only audit
trail.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
