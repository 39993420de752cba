package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the harness version, overridable at build time via
// -ldflags "-X main.Version=...".
var Version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ganymede %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
