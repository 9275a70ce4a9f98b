// Package species provides the species command: a table of detected species.
package species

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/datastore"
)

// Command creates the species command.
func Command(settings *conf.Settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "species",
		Short: "List detected species with counts and confidence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds := datastore.New(settings)
			if err := ds.Open(); err != nil {
				return fmt.Errorf("failed to open datastore: %w", err)
			}
			defer ds.Close()

			summary, err := ds.SpeciesSummary(cmd.Context())
			if err != nil {
				return err
			}
			RenderTable(cmd.OutOrStdout(), summary, limit)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n species, 0 for all")
	return cmd
}

// RenderTable writes the summary rows, most detected first, as a table.
func RenderTable(w io.Writer, rows []datastore.SpeciesSummary, limit int) {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Species", "Scientific name", "Detections", "Avg conf %", "First seen", "Last seen"})
	var total int64
	for i := range rows {
		r := &rows[i]
		total += r.DetectionCount
		scientific := ""
		if r.ScientificName != nil {
			scientific = *r.ScientificName
		}
		t.AppendRow(table.Row{
			r.Name,
			scientific,
			r.DetectionCount,
			fmt.Sprintf("%.1f", r.AvgConfidence),
			r.FirstSeen.Format(time.DateTime),
			r.LastSeen.Format(time.DateTime),
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d species", len(rows)), "", total, "", "", ""})
	t.Render()
}
