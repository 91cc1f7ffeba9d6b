// Package occupancylog runs the background loop that samples the pool
// occupancy while the facility is open and appends every reading to the
// sample store.
package occupancylog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"poolwatch-backend/lib/chrono"
	"poolwatch-backend/lib/openinghours"
	"poolwatch-backend/lib/samplestore"

	"github.com/mazen160/go-random"
)

// Fetcher retrieves the raw html of the occupancy page. The worker owns it
// for the duration of Run and closes it on the way out.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
	Close()
}

type State int32

const (
	StateWaitingForWindow State = iota + 1
	StatePolling
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateWaitingForWindow:
		return "waiting_for_window"
	case StatePolling:
		return "polling"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "idle"
}

// SleepFunc blocks for `d` or until ctx is done, whichever comes first, and
// returns ctx.Err() in the latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Options struct {
	Hours openinghours.Hours
	// PollInterval is the time between two samples while open.
	PollInterval time.Duration
	// FetchTimeout bounds a single fetch, defaults to 30 seconds.
	FetchTimeout time.Duration
	Fetcher      Fetcher
	Store        samplestore.Appender
	// Clock defaults to chrono.StandardImpl.
	Clock chrono.API
	// Sleep defaults to a timer, tests replace it to avoid real waiting.
	Sleep SleepFunc
	// SkipInitialScrape delays the first sample of every polling period by
	// one interval instead of taking it as soon as the window opens.
	SkipInitialScrape bool
}

type Worker struct {
	hours             openinghours.Hours
	interval          time.Duration
	fetchTimeout      time.Duration
	fetcher           Fetcher
	store             samplestore.Appender
	clock             chrono.API
	sleep             SleepFunc
	skipInitialScrape bool

	state atomic.Int32
	log   *slog.Logger
}

func New(opts Options) (*Worker, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("a fetcher is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("a store is required")
	}
	if opts.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", opts.PollInterval)
	}
	err := opts.Hours.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid hours: %w", err)
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = time.Second * 30
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardImpl()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}

	runId, err := random.String(8)
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	return &Worker{
		hours:             opts.Hours,
		interval:          opts.PollInterval,
		fetchTimeout:      opts.FetchTimeout,
		fetcher:           opts.Fetcher,
		store:             opts.Store,
		clock:             opts.Clock,
		sleep:             opts.Sleep,
		skipInitialScrape: opts.SkipInitialScrape,
		log:               slog.With("run", runId),
	}, nil
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

func (w *Worker) setState(s State) {
	previous := State(w.state.Swap(int32(s)))
	if previous != s {
		w.log.Debug("state change", "from", previous, "to", s)
	}
}

// Run samples until ctx is cancelled. Per-tick failures never stop it, it
// returns nil once it has shut down in an orderly way.
func (w *Worker) Run(ctx context.Context) error {
	defer w.setState(StateStopped)
	defer w.fetcher.Close()

	w.log.InfoContext(ctx, "occupancy log started", "interval", w.interval)

	for ctx.Err() == nil {
		now := w.clock.Now()
		if !w.hours.IsOpen(now) {
			w.setState(StateWaitingForWindow)
			next := w.hours.NextOpen(now)
			w.log.InfoContext(ctx, "outside operating hours, waiting", "until", next)

			// the window is re-evaluated after waking in case the clock or
			// the hours moved during a long wait.
			err := w.sleep(ctx, next.Sub(now))
			if err != nil {
				break
			}
			continue
		}

		w.setState(StatePolling)
		err := w.poll(ctx)
		if err != nil {
			break
		}
	}

	w.setState(StateStopping)
	w.log.Info("occupancy log is stopping")
	return nil
}

// poll takes samples on a fixed schedule until the window closes (returning
// nil) or ctx is done (returning its error).
func (w *Worker) poll(ctx context.Context) error {
	last := w.clock.Now()
	if !w.skipInitialScrape {
		w.Tick(ctx)
	}

	for {
		now := w.clock.Now()
		next := last.Add(w.interval)
		// ticks missed because a cycle overran are dropped rather than
		// fired back to back.
		for !next.After(now) {
			next = next.Add(w.interval)
		}

		err := w.sleep(ctx, next.Sub(now))
		if err != nil {
			return err
		}
		last = next

		if w.Tick(ctx) == TickSkippedClosed {
			w.log.InfoContext(ctx, "operating hours ended")
			return nil
		}
	}
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
