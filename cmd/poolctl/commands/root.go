package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"poolwatch-backend/lib/poolconfig"
	"poolwatch-backend/lib/samplestore"
	"poolwatch-backend/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type globals struct {
	configPath string
	db         string
	verbose    bool
	cfg        poolconfig.Config
}

func (g *globals) load() error {
	var err error
	if g.configPath != "" {
		g.cfg, err = poolconfig.Read(g.configPath)
	} else {
		g.cfg, err = poolconfig.Load()
	}
	return err
}

func (g *globals) openStore(ctx context.Context) (samplestore.Store, error) {
	dsn := g.db
	if dsn == "" {
		var err error
		dsn, err = g.cfg.ApiDatabase()
		if err != nil {
			return samplestore.Store{}, err
		}
	}
	return samplestore.Open(ctx, dsn)
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:          "poolctl",
		Short:        "poolctl is a CLI for checking the pool occupancy scraper and its sample log.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			telemetry.InitSlog(g.verbose)
			return g.load()
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "The config file to read, defaults to the nearest config.json5.")
	root.PersistentFlags().StringVar(&g.db, "db", "", "The database to use, overrides the config and environment.")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose logging.")

	root.AddCommand(
		newScrapeCmd(g),
		newHistoryCmd(g),
		newHoursCmd(g),
		newStatusCmd(g),
	)
	return root
}

func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
