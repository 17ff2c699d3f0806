package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fmueller/voxscribe/internal/whisper"
	"github.com/spf13/cobra"
)

func newModelsCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available model sizes and whether they are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelDir, err := modelStorageDir(app.modelDir)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tFILE\tSTATUS")
			for _, name := range whisper.ModelNames() {
				resolved, err := whisper.ResolveModel(name, modelDir)
				if err != nil {
					return err
				}

				status := "installed"
				if resolved.NeedsDownload {
					status = "missing"
				}
				if name == whisper.DefaultModel {
					status += " (default)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", resolved.Name, resolved.Path, status)
			}
			return tw.Flush()
		},
	}

	bindLoggingFlags(cmd, app)
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")

	return cmd
}
