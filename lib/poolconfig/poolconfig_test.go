package poolconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"poolwatch-backend/lib/openinghours"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// the pool
		database: "data/samples.db",
		hours: { regular_start: "09:00" },
		scraper: { poll_interval: "60s", fetch_timeout: "10s" },
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		scraper: { poll_interval: "15s" },
	}`), 0644))

	cfg, err := Read(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)

	expected := Config{
		Database: "data/samples.db",
		Hours:    openinghours.Config{RegularStart: "09:00"},
		Scraper:  ScraperConfig{PollInterval: "15s", FetchTimeout: "10s"},
	}
	diff := cmp.Diff(expected, cfg)
	if diff != "" {
		t.Fatal(diff)
	}

	every, err := cfg.Scraper.PollEvery()
	require.NoError(t, err)
	require.Equal(t, 15*time.Second, every)

	opts, err := cfg.Scraper.ClientOptions()
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, opts.Timeout)
}

func TestReadMissing(t *testing.T) {
	cfg, err := Read(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, Config{}, cfg)

	every, err := cfg.Scraper.PollEvery()
	require.NoError(t, err)
	require.Equal(t, DefaultPollInterval, every)
	require.Equal(t, DefaultApiAddr, cfg.Api.Address())
}

func TestBadDurations(t *testing.T) {
	_, err := ScraperConfig{PollInterval: "soon"}.PollEvery()
	require.Error(t, err)
	_, err = ScraperConfig{PollInterval: "-5s"}.PollEvery()
	require.Error(t, err)
	_, err = ScraperConfig{FetchTimeout: "0s"}.ClientOptions()
	require.Error(t, err)
}

func TestDatabaseFromEnv(t *testing.T) {
	t.Setenv(EnvWorkerDatabase, "")
	t.Setenv(EnvApiDatabase, "")

	_, err := Config{}.WorkerDatabase()
	require.ErrorIs(t, err, ErrNoDatabase)
	_, err = Config{}.ApiDatabase()
	require.ErrorIs(t, err, ErrNoDatabase)

	t.Setenv(EnvWorkerDatabase, "worker.db")
	dsn, err := Config{}.WorkerDatabase()
	require.NoError(t, err)
	require.Equal(t, "worker.db", dsn)

	// the api falls back to the worker's database
	dsn, err = Config{}.ApiDatabase()
	require.NoError(t, err)
	require.Equal(t, "worker.db", dsn)

	t.Setenv(EnvApiDatabase, "postgres://pool@localhost/pool")
	dsn, err = Config{}.ApiDatabase()
	require.NoError(t, err)
	require.Equal(t, "postgres://pool@localhost/pool", dsn)

	// the config file wins over the environment
	dsn, err = Config{Database: "file.db"}.WorkerDatabase()
	require.NoError(t, err)
	require.Equal(t, "file.db", dsn)
}
