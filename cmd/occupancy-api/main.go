package main

import (
	"context"
	"flag"

	"poolwatch-backend/lib/poolconfig"
	"poolwatch-backend/lib/samplestore"
	"poolwatch-backend/lib/serviceutil"
	"poolwatch-backend/lib/telemetry"
	"poolwatch-backend/services/occupancyapi"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	addr := flag.String("addr", "", "The address to listen on, overrides the config.")
	flag.Parse()

	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	telemetry.InitSlog(*verbose)
	t, err := telemetry.SetupFromEnv(ctx, "occupancy-api")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	cfg, err := poolconfig.Load()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	dsn, err := cfg.ApiDatabase()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if *addr != "" {
		cfg.Api.Addr = *addr
	}

	store, err := samplestore.Open(ctx, dsn)
	if err != nil {
		serviceutil.Fatal("open database", err)
	}
	defer store.Close()

	service := occupancyapi.NewService(store, occupancyapi.Options{
		Path: cfg.Api.Path,
	})
	err = serviceutil.StartHttpServer(ctx, cfg.Api.Address(), service.Handler())
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
