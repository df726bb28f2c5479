package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/Hekzory/nota/internal/manager"
	"github.com/Hekzory/nota/internal/runenv"
)

// newRootCmd builds the nota command. Flag parsing is left to the manager,
// whose grammar ignores unknown tokens and treats -h as a plain argument.
func newRootCmd(env runenv.Env, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nota comment <input_file> [--config <config_file>]",
		Short: "nota adds comments to a source file using a language model",
		Long: `nota sends a source file to a language model (a local Ollama by default),
asks it to add comments without touching the code, and writes the result back
in place.`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := manager.NewManager(env, manager.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))
			return m.Run(cmd.Context(), args)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}
