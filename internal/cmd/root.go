package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mdvault/mdvault/internal/log"
)

var (
	chdir string
	debug bool
)

func Root() *cobra.Command {
	cmd := cobra.Command{
		Use:           "mdvault",
		Short:         "Keep markdown notes, their task lists, and their editors in sync",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				log.Set(true)
			}
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.StringVar(&chdir, "chdir", ".", "Switch to a different working directory before executing the command.")
	pflags.BoolVar(&debug, "debug", false, "Enable debug logging.")

	cmd.AddCommand(fmtCmd())
	cmd.AddCommand(tasksCmd())
	cmd.AddCommand(watchCmd())

	return &cmd
}
