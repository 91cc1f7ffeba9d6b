package commands

import (
	"fmt"
	"time"

	"poolwatch-backend/lib/chrono"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHoursCmd(g *globals) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "hours [--at <RFC3339 time>]",
		Short: "Prints the operating hours and whether sampling happens at a given time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := g.cfg.Hours.Hours()
			if err != nil {
				return err
			}

			now := chrono.NewStandardImpl().Now()
			if at != "" {
				now, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Day", "Start", "Close"})
			for day := time.Monday; day <= time.Saturday; day++ {
				t.AppendRow(table.Row{day, hours.StartOn(day), hours.Close})
			}
			t.AppendRow(table.Row{time.Sunday, hours.StartOn(time.Sunday), hours.Close})
			t.Render()

			out := cmd.OutOrStdout()
			if hours.IsOpen(now) {
				fmt.Fprintf(out, "open at %s\n", now.Format(time.RFC3339))
				return nil
			}
			fmt.Fprintf(
				out, "closed at %s, next opening %s\n",
				now.Format(time.RFC3339),
				hours.NextOpen(now).Format(time.RFC3339),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "The time to check, defaults to now.")
	return cmd
}
