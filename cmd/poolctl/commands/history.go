package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCmd(g *globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [--limit <n>]",
		Short: "Prints the recorded samples, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			samples, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(samples) > limit {
				samples = samples[:limit]
			}

			if len(samples) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no samples recorded")
				return nil
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Timestamp", "Occupancy"})
			for _, s := range samples {
				t.AppendRow(table.Row{s.ID, s.Timestamp.Format(time.RFC3339), s.Occupancy})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "The number of samples to print, 0 prints all of them.")
	return cmd
}
