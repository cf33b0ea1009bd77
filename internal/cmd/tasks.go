package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mdvault/mdvault/pkg/document"
)

func tasksCmd() *cobra.Command {
	var cycle int

	cmd := cobra.Command{
		Use:   "tasks",
		Short: "List task items in a markdown file with their tri-state status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileName := filepath.Join(chdir, args[0])
			data, err := os.ReadFile(fileName)
			if err != nil {
				return errors.Wrapf(err, "failed to read file %q", fileName)
			}

			tree := document.Parse(data)
			items := tree.TaskItems()

			if cycle >= 0 {
				if cycle >= len(items) {
					return errors.Errorf("task index %d out of range, file has %d tasks", cycle, len(items))
				}
				if _, err := tree.CycleTask(items[cycle].ID()); err != nil {
					return err
				}
				return errors.Wrapf(
					os.WriteFile(fileName, document.Render(tree), 0o644),
					"failed to write file %q", fileName,
				)
			}

			for i, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d [%c] %-12s %s\n", i, item.Check.Marker(), item.Check, item.Text)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&cycle, "cycle", -1, "Cycle the status of the task with the given index and save the file.")

	return &cmd
}
