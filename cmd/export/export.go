// Package export provides the export command: every stored detection as CSV.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/datastore"
)

// Command creates the export command.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all detections as CSV",
		Long:  "Write every stored detection as CSV with a header row, to a file or to standard output.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds := datastore.New(settings)
			if err := ds.Open(); err != nil {
				return fmt.Errorf("failed to open datastore: %w", err)
			}
			defer ds.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := datastore.ExportCSV(cmd.Context(), ds, w)
			if err != nil {
				return fmt.Errorf("export failed after %d rows: %w", n, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d detections\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for standard output")
	return cmd
}
