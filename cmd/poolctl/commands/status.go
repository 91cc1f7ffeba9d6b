package commands

import (
	"fmt"
	"time"

	"poolwatch-backend/lib/chrono"

	"github.com/spf13/cobra"
)

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Prints the latest recorded sample and whether the pool is open.",
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := g.cfg.Hours.Hours()
			if err != nil {
				return err
			}
			store, err := g.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			now := chrono.NewStandardImpl().Now()
			if hours.IsOpen(now) {
				fmt.Fprintln(out, "pool: open")
			} else {
				fmt.Fprintf(out, "pool: closed until %s\n", hours.NextOpen(now).Format(time.RFC3339))
			}

			latest, ok, err := store.Latest(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "no samples recorded")
				return nil
			}
			fmt.Fprintf(
				out, "latest: %d at %s (%s ago)\n",
				latest.Occupancy,
				latest.Timestamp.Format(time.RFC3339),
				now.Sub(latest.Timestamp).Truncate(time.Second),
			)
			return nil
		},
	}
}
