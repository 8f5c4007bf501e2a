package cmd

import (
	"github.com/spf13/cobra"

	"github.com/paceml-cloud/paceml/cmd/start"
	"github.com/paceml-cloud/paceml/cmd/worker"
)

var cmds = []*cobra.Command{
	start.Cmd,
	worker.Cmd,
}

// Execute builds the command tree and executes commands.
func Execute() error {
	command := &cobra.Command{
		Use: "paceml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	for _, c := range cmds {
		command.AddCommand(c)
	}

	return command.Execute()
}
