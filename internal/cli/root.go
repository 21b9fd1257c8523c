// Package cli wires the apitool commands: generate, serve and init.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the apitool CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apitool",
		Short: "Generate JSON schemas from Go models and serve mock APIs from them",
		Long: "apitool reads api item groups from YAML/JSON, writes one JSON schema per request/response " +
			"model, and serves fake responses for every endpoint.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	cmd.SetFlagErrorFunc(flagError)

	cmd.PersistentFlags().StringP("config", "c", "", "Tool config file (YAML or JSON); defaults to ./apitool.yaml when present")
	cmd.PersistentFlags().String("log-level", "", "Log level (trace|debug|info|warn|error|disabled)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output (same as --log-level debug)")

	for _, sub := range []*cobra.Command{newGenerateCmd(), newServeCmd(), newInitCmd()} {
		sub.SetFlagErrorFunc(flagError)
		cmd.AddCommand(sub)
	}

	return cmd
}

func flagError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}
