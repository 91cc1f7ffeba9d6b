// Package poolconfig is the configuration shared by the pool occupancy
// binaries. Values come from config.json5 (merged with config.local.json5),
// connection strings may also come from the environment or a .env file.
package poolconfig

import (
	"errors"
	"fmt"
	"os"
	"time"

	"poolwatch-backend/lib/configutil"
	"poolwatch-backend/lib/openinghours"
	"poolwatch-backend/lib/scrapers/samk"
)

const (
	EnvWorkerDatabase = "DB_CONNECTION_STRING"
	EnvApiDatabase    = "AZURE_DB_CONNECTION"
)

const (
	DefaultPollInterval = 300 * time.Second
	DefaultApiAddr      = ":8080"
)

var ErrNoDatabase = errors.New("no database connection string configured")

type ScraperConfig struct {
	Url string `json:"url"`
	// durations are Go duration strings, ex. "300s"
	PollInterval            string `json:"poll_interval"`
	FetchTimeout            string `json:"fetch_timeout"`
	UserAgent               string `json:"user_agent"`
	DisableCloudflareBypass bool   `json:"disable_cloudflare_bypass"`
	SkipInitialScrape       bool   `json:"skip_initial_scrape"`
	// DumpDir receives a dump of every http exchange when set.
	DumpDir string `json:"dump_dir"`
}

type ApiConfig struct {
	Addr string `json:"addr"`
	Path string `json:"path"`
}

type Config struct {
	Database string              `json:"database"`
	Hours    openinghours.Config `json:"hours"`
	Scraper  ScraperConfig       `json:"scraper"`
	Api      ApiConfig           `json:"api"`
}

// Load reads .env from the working directory and the nearest config.json5
// going up from it. A missing config file leaves everything at defaults.
func Load() (Config, error) {
	err := configutil.LoadDotenv(".env")
	if err != nil {
		return Config{}, err
	}
	cfg, err := configutil.ReadRecursively[Config]("config.json5")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load for a config file at a known path.
func Read(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	return cfg, nil
}

// WorkerDatabase is the connection string of the sample log writer.
func (c Config) WorkerDatabase() (string, error) {
	dsn := configutil.FirstNonEmpty(c.Database, EnvWorkerDatabase)
	if dsn == "" {
		return "", fmt.Errorf("%w: set %s", ErrNoDatabase, EnvWorkerDatabase)
	}
	return dsn, nil
}

// ApiDatabase is the connection string of the read api, it falls back to
// the worker's.
func (c Config) ApiDatabase() (string, error) {
	dsn := configutil.FirstNonEmpty(c.Database, EnvApiDatabase, EnvWorkerDatabase)
	if dsn == "" {
		return "", fmt.Errorf("%w: set %s", ErrNoDatabase, EnvApiDatabase)
	}
	return dsn, nil
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}

func (c ScraperConfig) PollEvery() (time.Duration, error) {
	return parseDuration("poll_interval", c.PollInterval, DefaultPollInterval)
}

// Timeout returns 0 when unset so the consumer applies its own default.
func (c ScraperConfig) Timeout() (time.Duration, error) {
	return parseDuration("fetch_timeout", c.FetchTimeout, 0)
}

func (c ScraperConfig) ClientOptions() (samk.ClientOptions, error) {
	timeout, err := c.Timeout()
	if err != nil {
		return samk.ClientOptions{}, err
	}
	return samk.ClientOptions{
		Url:                     c.Url,
		Timeout:                 timeout,
		UserAgent:               c.UserAgent,
		DisableCloudflareBypass: c.DisableCloudflareBypass,
	}, nil
}

func (c ApiConfig) Address() string {
	if c.Addr == "" {
		return DefaultApiAddr
	}
	return c.Addr
}
