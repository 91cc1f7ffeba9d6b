package samplestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"poolwatch-backend/lib/samplestore/db"
	"poolwatch-backend/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setupStore(t testing.TB) Store {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "lib/samplestore",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)
	return NewStore(setup.DB)
}

func TestStore(t *testing.T) {
	store := setupStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		samples, err := store.All(ctx)
		require.NoError(t, err)
		require.NotNil(t, samples)
		require.Len(t, samples, 0)

		_, ok, err := store.Latest(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	}

	base := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	prague := time.FixedZone("CET", 60*60)

	require.NoError(t, store.Append(ctx, base, 17))
	require.NoError(t, store.Append(ctx, base.Add(time.Minute*10), 42))
	// appended later but taken earlier, expressed in another zone
	require.NoError(t, store.Append(ctx, base.Add(time.Minute*5).In(prague), 30))

	samples, err := store.All(ctx)
	require.NoError(t, err)

	expect := []Sample{
		{ID: 2, Timestamp: base.Add(time.Minute * 10), Occupancy: 42},
		{ID: 3, Timestamp: base.Add(time.Minute * 5), Occupancy: 30},
		{ID: 1, Timestamp: base, Occupancy: 17},
	}
	if diff := cmp.Diff(expect, samples); diff != "" {
		t.Fatalf("samples mismatch (-want +got):\n%s", diff)
	}
	for _, s := range samples {
		require.Equal(t, time.UTC, s.Timestamp.Location())
	}

	latest, ok, err := store.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, expect[0], latest)
}

func TestStoreSameTimestamp(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	ts := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, ts, 1))
	require.NoError(t, store.Append(ctx, ts, 2))

	samples, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	// ties fall back to insertion order, newest first
	require.Equal(t, 2, samples[0].Occupancy)
	require.Equal(t, 1, samples[1].Occupancy)
}

func TestStoreRejectsInvalid(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.Append(ctx, time.Now(), -1)
	require.ErrorIs(t, err, ErrInvalidOccupancy)

	err = store.Append(ctx, time.Time{}, 5)
	require.Error(t, err)

	samples, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, samples, 0)
}

func TestStoreCancelledContext(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Append(ctx, time.Now(), 5)
	require.Error(t, err)

	samples, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 0)
}

func TestStoreClosed(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.Close())

	err := store.Append(context.Background(), time.Now(), 5)
	require.Error(t, err)
}

func TestStoreConcurrentAppends(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Append(ctx, base.Add(time.Duration(i)*time.Second), i)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	samples, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, samples, 20)
	for i, s := range samples {
		require.Equal(t, 19-i, s.Occupancy)
	}
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/samples.db"

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, time.Now(), 12))
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	samples, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, 12, samples[0].Occupancy)
}
