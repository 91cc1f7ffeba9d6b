package occupancylog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"poolwatch-backend/lib/chrono"
	"poolwatch-backend/lib/openinghours"
	"poolwatch-backend/lib/samplestore"
	"poolwatch-backend/lib/samplestore/db"
	"poolwatch-backend/lib/scrapers/samk"
	"poolwatch-backend/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestWorkerAgainstServer(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/occupancylog",
		DbSchema: db.Schema,
	})
	defer cleanup()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n == 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, chartPage(int(n)*10))
	}))
	defer srv.Close()

	client, err := samk.NewClient(samk.ClientOptions{
		Url:                     srv.URL,
		Timeout:                 5 * time.Second,
		DisableCloudflareBypass: true,
	})
	require.NoError(t, err)

	store := samplestore.NewStore(setup.DB)
	clock := chrono.NewFake(at(tuesday, 10, 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeps := 0
	worker, err := New(Options{
		Hours:        openinghours.Default(),
		PollInterval: 5 * time.Minute,
		Fetcher:      client,
		Store:        store,
		Clock:        clock,
		Sleep: func(ctx context.Context, d time.Duration) error {
			sleeps++
			if sleeps == 3 {
				cancel()
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			clock.Advance(d)
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, worker.Run(ctx))
	require.EqualValues(t, 3, hits.Load())

	samples, err := store.All(context.Background())
	require.NoError(t, err)

	expected := []samplestore.Sample{
		{Timestamp: at(tuesday, 10, 10), Occupancy: 30},
		{Timestamp: at(tuesday, 10, 0), Occupancy: 10},
	}
	diff := cmp.Diff(expected, samples, cmpopts.IgnoreFields(samplestore.Sample{}, "ID"))
	if diff != "" {
		t.Fatal(diff)
	}

	// the worker released the client on the way out
	_, err = client.Fetch(context.Background())
	require.Error(t, err)
}
