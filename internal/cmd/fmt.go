package cmd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mdvault/mdvault/pkg/document"
)

func fmtCmd() *cobra.Command {
	var write bool

	cmd := cobra.Command{
		Use:   "fmt",
		Short: "Format a markdown file into canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileName := args[0]

			var data []byte
			if fileName == "-" {
				var err error
				data, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "failed to read from stdin")
				}
			} else {
				var err error
				data, err = os.ReadFile(filepath.Join(chdir, fileName))
				if err != nil {
					return errors.Wrapf(err, "failed to read file %q", fileName)
				}
			}

			result := document.Render(document.Parse(data))

			if write && fileName != "-" {
				return errors.Wrapf(
					os.WriteFile(filepath.Join(chdir, fileName), result, 0o644),
					"failed to write file %q", fileName,
				)
			}
			_, err := cmd.OutOrStdout().Write(result)
			return errors.Wrap(err, "failed to write result")
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back instead of printing it.")

	return &cmd
}
