package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mdvault/mdvault/internal/log"
	"github.com/mdvault/mdvault/internal/storage"
	"github.com/mdvault/mdvault/internal/watcher"
	"github.com/mdvault/mdvault/pkg/editor"
)

// watchCmd runs a live editing session against a note on disk: external
// writes are picked up through the filesystem watcher and task toggles
// made through the tasks command elsewhere flow back out via autosave.
func watchCmd() *cobra.Command {
	var (
		stateDir string
		noGit    bool
	)

	cmd := cobra.Command{
		Use:   "watch",
		Short: "Watch a note and report synchronization events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.Get()
			out := cmd.OutOrStdout()

			store, err := storage.NewFileStore(chdir, logger)
			if err != nil {
				return err
			}
			if !noGit {
				committer, err := storage.NewCommitter(store.Root(), logger)
				if err != nil {
					return err
				}
				store.WithCommitter(committer)
			}

			relPath := args[0]
			initialText, err := store.Load(relPath)
			if err != nil {
				return err
			}

			if stateDir == "" {
				stateDir = filepath.Join(os.TempDir(), "mdvault-state")
			}

			session := editor.Open(relPath, initialText, editor.SurfaceSource, editor.Config{
				Save:   store.Save,
				States: storage.NewEditorStates(stateDir),
				Callbacks: editor.Callbacks{
					Changed: func(text string) {
						fmt.Fprintf(out, "changed: %d bytes\n", len(text))
					},
					SaveStatus: func(ev editor.SaveEvent) {
						if ev.Err != nil {
							fmt.Fprintf(out, "save %s: %v\n", ev.Status, ev.Err)
							return
						}
						fmt.Fprintf(out, "save %s\n", ev.Status)
					},
				},
				Logger: logger,
			})
			defer session.Close()

			fullPath, err := store.Resolve(relPath)
			if err != nil {
				return err
			}

			w, err := watcher.New(func(_ string, content []byte) {
				fmt.Fprintf(out, "external update: %d bytes\n", len(content))
				session.ExternalTextChanged(string(content))
			}, 0, logger)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Add(fullPath); err != nil {
				return err
			}

			fmt.Fprintf(out, "watching %s\n", relPath)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt)
			<-stop

			return nil
		},
	}

	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Directory for persisted editor state.")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "Do not record saves as commits in the vault's git history.")

	return &cmd
}
