package samplestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"poolwatch-backend/lib/dbutil"
	"poolwatch-backend/lib/samplestore/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/samplestore")

var ErrInvalidOccupancy = errors.New("occupancy must not be negative")

// Sample is one recorded occupancy reading.
type Sample struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Occupancy int       `json:"occupancy"`
}

// Appender is the write side of the store.
type Appender interface {
	Append(ctx context.Context, timestamp time.Time, occupancy int) error
}

// Reader is the read side of the store.
type Reader interface {
	// All returns every sample, newest first.
	All(ctx context.Context) ([]Sample, error)
}

// Store is an append only log of samples, samples are never updated or
// deleted through it.
type Store struct {
	db dbutil.DB
}

func NewStore(database dbutil.DB) Store {
	return Store{db: database}
}

// Open opens the database behind `dsn` and makes sure the schema exists.
func Open(ctx context.Context, dsn string) (Store, error) {
	database, err := dbutil.Open(ctx, dsn, db.Schema)
	if err != nil {
		return Store{}, err
	}
	return NewStore(database), nil
}

func (s Store) Close() error {
	return s.db.Close()
}

// Append records one sample in its own transaction.
func (s Store) Append(ctx context.Context, timestamp time.Time, occupancy int) error {
	ctx, span := tracer.Start(ctx, "Append")
	defer span.End()

	span.SetAttributes(attribute.Int("occupancy", occupancy))

	err := s.append(ctx, timestamp, occupancy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s Store) append(ctx context.Context, timestamp time.Time, occupancy int) error {
	if occupancy < 0 {
		return ErrInvalidOccupancy
	}
	if timestamp.IsZero() {
		return fmt.Errorf("append sample: timestamp is not set")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append sample: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		s.db.Rebind(`INSERT INTO log_entries ("timestamp", occupancy) VALUES (?, ?)`),
		timestamp.UTC().UnixMilli(),
		occupancy,
	)
	if err != nil {
		return fmt.Errorf("append sample: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

const selectSamples = `SELECT id, "timestamp", occupancy FROM log_entries ORDER BY "timestamp" DESC, id DESC`

func (s Store) All(ctx context.Context) ([]Sample, error) {
	ctx, span := tracer.Start(ctx, "All")
	defer span.End()

	samples, err := s.query(ctx, selectSamples)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(samples)))
	return samples, nil
}

// Latest returns the newest sample, false if there are none.
func (s Store) Latest(ctx context.Context) (Sample, bool, error) {
	samples, err := s.query(ctx, selectSamples+" LIMIT 1")
	if err != nil {
		return Sample{}, false, err
	}
	if len(samples) == 0 {
		return Sample{}, false, nil
	}
	return samples[0], true, nil
}

func (s Store) query(ctx context.Context, query string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		var sample Sample
		var millis int64
		err := rows.Scan(&sample.ID, &millis, &sample.Occupancy)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.Timestamp = time.UnixMilli(millis).UTC()
		samples = append(samples, sample)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	return samples, nil
}
