package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/scenario/wireapproval"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			return fmt.Errorf("no config file given: use --config")
		}
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("%s: OK (backend=%s, max_steps=%d, mode=%s)\n",
			cfgFile, cfg.Audit.Backend, cfg.Harness.MaxSteps, cfg.Harness.EnforcementMode)
		return nil
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the wire-format capability schemas for the reference scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := wireapproval.Default()
		for _, def := range sc.Capabilities() {
			schema := def.ToWireFormat()
			printJSON(schema)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(toolsCmd)
}
