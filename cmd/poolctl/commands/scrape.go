package commands

import (
	"fmt"
	"time"

	"poolwatch-backend/lib/chrono"
	"poolwatch-backend/lib/scrapers/samk"

	"github.com/spf13/cobra"
)

func newScrapeCmd(g *globals) *cobra.Command {
	var save, noBypass bool
	var url string

	cmd := &cobra.Command{
		Use:   "scrape [--save] [--url <page>]",
		Short: "Fetches the occupancy page once and prints what was extracted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.cfg.Scraper.ClientOptions()
			if err != nil {
				return err
			}
			if url != "" {
				opts.Url = url
			}
			if noBypass {
				opts.DisableCloudflareBypass = true
			}

			client, err := samk.NewClient(opts)
			if err != nil {
				return err
			}
			defer client.Close()

			html, err := client.Fetch(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res := samk.Inspect(html)
			if !res.OK() {
				if res.Label != "" {
					fmt.Fprintf(out, "chart label: %q\n", res.Label)
				}
				if res.Value != "" {
					fmt.Fprintf(out, "chart value: %q\n", res.Value)
				}
				if res.LabelDrift {
					fmt.Fprintln(out, "the label looks like a renamed pool chart")
				}
				return fmt.Errorf("no occupancy on %s: %s", client.Url(), res.Miss)
			}
			fmt.Fprintf(out, "occupancy: %d\n", res.Occupancy)

			if !save {
				return nil
			}
			store, err := g.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			takenAt := chrono.NewStandardImpl().Now()
			err = store.Append(cmd.Context(), takenAt, res.Occupancy)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "saved sample at %s\n", takenAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Append the result to the sample log.")
	cmd.Flags().StringVar(&url, "url", "", "The page to scrape, overrides the config.")
	cmd.Flags().BoolVar(&noBypass, "no-bypass", false, "Do not alter the tls fingerprint of requests.")
	return cmd
}
