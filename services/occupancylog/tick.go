package occupancylog

import (
	"context"
	"errors"

	"poolwatch-backend/lib/scrapers/samk"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("services/occupancylog")

var meter = otel.Meter("services/occupancylog")
var samplesStored, _ = meter.Int64Counter("occupancylog.samples_stored")
var extractionMisses, _ = meter.Int64Counter("occupancylog.extraction_misses")
var fetchFailures, _ = meter.Int64Counter("occupancylog.fetch_failures")
var storeFailures, _ = meter.Int64Counter("occupancylog.store_failures")
var lastOccupancy, _ = meter.Int64Gauge("occupancylog.last_occupancy")

type TickOutcome int

const (
	TickStored TickOutcome = iota
	TickExtractionMiss
	TickFetchFailed
	TickFetchCancelled
	TickStoreFailed
	// TickSkippedClosed means the window was closed so nothing was fetched.
	TickSkippedClosed
)

func (o TickOutcome) String() string {
	switch o {
	case TickStored:
		return "stored"
	case TickExtractionMiss:
		return "extraction_miss"
	case TickFetchFailed:
		return "fetch_failed"
	case TickFetchCancelled:
		return "fetch_cancelled"
	case TickStoreFailed:
		return "store_failed"
	case TickSkippedClosed:
		return "skipped_closed"
	}
	return "unknown"
}

// Tick runs one fetch, extract, store cycle. Every failure is absorbed here,
// the outcome only says what happened.
func (w *Worker) Tick(ctx context.Context) TickOutcome {
	ctx, span := tracer.Start(ctx, "Tick")
	defer span.End()

	outcome := w.tick(ctx)
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	if outcome == TickFetchFailed || outcome == TickStoreFailed {
		span.SetStatus(codes.Error, outcome.String())
	}
	return outcome
}

func (w *Worker) tick(ctx context.Context) TickOutcome {
	if !w.hours.IsOpen(w.clock.Now()) {
		return TickSkippedClosed
	}

	html, err := w.fetch(ctx)
	if err != nil {
		if errors.Is(err, samk.ErrFetchCancelled) || isCancellation(ctx, err) {
			w.log.DebugContext(ctx, "fetch cancelled")
			return TickFetchCancelled
		}
		fetchFailures.Add(ctx, 1)
		w.log.ErrorContext(ctx, "fetch occupancy page", "err", err)
		return TickFetchFailed
	}

	res := samk.Inspect(html)
	if !res.OK() {
		extractionMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", res.Miss.String())))
		if res.LabelDrift {
			w.log.WarnContext(ctx, "pool chart label looks renamed", "label", res.Label)
			return TickExtractionMiss
		}
		w.log.WarnContext(
			ctx, "no occupancy on page",
			"reason", res.Miss,
			"label", res.Label,
			"value", res.Value,
		)
		return TickExtractionMiss
	}

	takenAt := w.clock.Now()
	err = w.store.Append(ctx, takenAt, res.Occupancy)
	if err != nil {
		if isCancellation(ctx, err) {
			w.log.DebugContext(ctx, "append sample abandoned on shutdown", "err", err)
			return TickStoreFailed
		}
		storeFailures.Add(ctx, 1)
		w.log.ErrorContext(ctx, "append sample", "occupancy", res.Occupancy, "err", err)
		return TickStoreFailed
	}

	samplesStored.Add(ctx, 1)
	lastOccupancy.Record(ctx, int64(res.Occupancy))
	w.log.DebugContext(ctx, "sample stored", "occupancy", res.Occupancy, "timestamp", takenAt)
	return TickStored
}

func (w *Worker) fetch(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()

	html, err := w.fetcher.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.Int("html_length", len(html)))
	return html, nil
}
