package main

import (
	"context"
	"flag"
	"log/slog"

	"poolwatch-backend/lib/poolconfig"
	"poolwatch-backend/lib/restyutil"
	"poolwatch-backend/lib/samplestore"
	"poolwatch-backend/lib/scrapers/samk"
	"poolwatch-backend/lib/serviceutil"
	"poolwatch-backend/lib/telemetry"
	"poolwatch-backend/services/occupancylog"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	telemetry.InitSlog(*verbose)
	t, err := telemetry.SetupFromEnv(ctx, "logservice")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	cfg, err := poolconfig.Load()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	dsn, err := cfg.WorkerDatabase()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	hours, err := cfg.Hours.Hours()
	if err != nil {
		serviceutil.Fatal("read operating hours", err)
	}
	interval, err := cfg.Scraper.PollEvery()
	if err != nil {
		serviceutil.Fatal("read poll interval", err)
	}
	clientOpts, err := cfg.Scraper.ClientOptions()
	if err != nil {
		serviceutil.Fatal("read scraper config", err)
	}
	if *verbose && cfg.Scraper.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.Scraper.DumpDir)
		if err != nil {
			serviceutil.Fatal("create http dump dir", err)
		}
		clientOpts.InstrumentOutput = output
	}

	store, err := samplestore.Open(ctx, dsn)
	if err != nil {
		serviceutil.Fatal("open database", err)
	}
	defer store.Close()

	client, err := samk.NewClient(clientOpts)
	if err != nil {
		serviceutil.Fatal("create scraper client", err)
	}

	worker, err := occupancylog.New(occupancylog.Options{
		Hours:             hours,
		PollInterval:      interval,
		FetchTimeout:      clientOpts.Timeout,
		Fetcher:           client,
		Store:             store,
		SkipInitialScrape: cfg.Scraper.SkipInitialScrape,
	})
	if err != nil {
		client.Close()
		serviceutil.Fatal("create worker", err)
	}

	slog.Info("logging pool occupancy", "url", client.Url())
	err = worker.Run(ctx)
	if err != nil {
		slog.Error("worker stopped", "err", err)
	}
}
