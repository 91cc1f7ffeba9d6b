package testutil

import (
	"context"
	"fmt"
	"testing"

	"poolwatch-backend/lib/dbutil"
	"poolwatch-backend/lib/telemetry"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip applying a schema
	DbSchema func(dbutil.Dialect) string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type ServiceResult struct {
	DB dbutil.DB
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanupTelemetry := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	dbpath := ":memory:"
	if params.DbPath != "" {
		dbpath = params.DbPath
	}
	db, err := dbutil.Open(context.Background(), dbpath, params.DbSchema)
	if err != nil {
		t.Fatal(err)
	}

	return ServiceResult{
			DB: db,
		}, func() {
			db.Close()
			cleanupTelemetry()
		}
}
