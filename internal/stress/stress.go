// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stress drives an accumulator from many goroutines at once and
// checks the result against values computed arithmetically.
package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/statcell/pkg/stat"
	"github.com/AleutianAI/statcell/pkg/telemetry"
)

var (
	// ErrNilAccumulator is returned by Run when given a nil accumulator.
	ErrNilAccumulator = errors.New("stress: nil accumulator")

	// ErrInvalidOptions is returned by Run for options that cannot describe
	// a run.
	ErrInvalidOptions = errors.New("stress: invalid options")

	// ErrMismatch is returned by Result.Verify when the accumulator disagrees
	// with the expected values.
	ErrMismatch = errors.New("stress: result mismatch")
)

// MeanTolerance is the absolute tolerance Verify allows on the average.
const MeanTolerance = 1e-4

// ctxCheckEvery is how many records a writer makes between context checks.
const ctxCheckEvery = 256

// Options describes one stress run.
type Options struct {
	// Writers is the number of concurrent goroutines.
	Writers int

	// PerWriter is how many values each writer records.
	PerWriter int

	// Offset is the smallest value recorded. Writer w records the range
	// [Offset+w*PerWriter, Offset+(w+1)*PerWriter), so no two writers share
	// a value.
	Offset int32

	// RatePerWriter caps each writer at this many records per second.
	// Zero means unlimited.
	RatePerWriter float64

	// Logger receives run start and finish records. Nil uses slog.Default().
	Logger *slog.Logger
}

func (o Options) validate() error {
	if o.Writers < 1 {
		return fmt.Errorf("%w: writers must be >= 1, got %d", ErrInvalidOptions, o.Writers)
	}
	if o.PerWriter < 1 {
		return fmt.Errorf("%w: per-writer must be >= 1, got %d", ErrInvalidOptions, o.PerWriter)
	}
	total := int64(o.Writers) * int64(o.PerWriter)
	if total > math.MaxInt32 {
		return fmt.Errorf("%w: %d writers x %d values exceeds the count limit", ErrInvalidOptions, o.Writers, o.PerWriter)
	}
	if int64(o.Offset)+total-1 > math.MaxInt32 {
		return fmt.Errorf("%w: range [%d, %d+%d) exceeds int32", ErrInvalidOptions, o.Offset, o.Offset, total)
	}
	if o.RatePerWriter < 0 || math.IsNaN(o.RatePerWriter) {
		return fmt.Errorf("%w: rate must be >= 0, got %g", ErrInvalidOptions, o.RatePerWriter)
	}
	return nil
}

// Expected holds the values a correct accumulator must report after a run
// that started from the empty state.
type Expected struct {
	Count    int64
	Sum      int64
	Smallest int32
	Largest  int32
	Average  float64
}

// ExpectedFor computes Expected for opts without running anything.
func ExpectedFor(opts Options) Expected {
	n, off := int64(opts.Writers)*int64(opts.PerWriter), int64(opts.Offset)
	e := Expected{
		Count:    n,
		Sum:      n*off + n*(n-1)/2,
		Smallest: opts.Offset,
		Largest:  int32(off + n - 1),
	}
	if e.Count > 0 {
		e.Average = float64(e.Sum) / float64(e.Count)
	}
	return e
}

// Result reports one run.
type Result struct {
	RunID    string
	Summary  stat.Summary
	Empty    bool
	Expected Expected
	Duration time.Duration
}

// Throughput is recorded observations per second.
func (r Result) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Summary.Count()) / r.Duration.Seconds()
}

// Verify checks count, sum, extremes and average against Expected.
//
// Returns an error wrapping ErrMismatch naming the first field that differs.
func (r Result) Verify() error {
	if r.Empty {
		if r.Expected.Count == 0 {
			return nil
		}
		return fmt.Errorf("%w: accumulator is empty, want count %d", ErrMismatch, r.Expected.Count)
	}
	s, e := r.Summary, r.Expected
	switch {
	case int64(s.Count()) != e.Count:
		return fmt.Errorf("%w: count %d, want %d", ErrMismatch, s.Count(), e.Count)
	case s.Sum() != e.Sum:
		return fmt.Errorf("%w: sum %d, want %d", ErrMismatch, s.Sum(), e.Sum)
	case s.Smallest() != e.Smallest:
		return fmt.Errorf("%w: smallest %d, want %d", ErrMismatch, s.Smallest(), e.Smallest)
	case s.Largest() != e.Largest:
		return fmt.Errorf("%w: largest %d, want %d", ErrMismatch, s.Largest(), e.Largest)
	case math.Abs(s.Average()-e.Average) > MeanTolerance:
		return fmt.Errorf("%w: average %g, want %g", ErrMismatch, s.Average(), e.Average)
	}
	return nil
}

// Run records opts.Writers shuffled ranges into acc concurrently.
//
// # Description
//
// Every writer shuffles its own disjoint block of PerWriter values before
// the run starts, then waits on a shared barrier so all writers hit the
// accumulator together. The first writer error (overflow or context
// cancellation) cancels the others.
//
// Expected assumes acc was empty when Run was called.
//
// # Outputs
//
//   - Result: Always populated with the accumulator state after the writers
//     stopped, even when err is non-nil.
//   - error: ErrNilAccumulator, ErrInvalidOptions, or the first writer error.
//
// # Example
//
//	res, err := stress.Run(ctx, stat.New(), stress.Options{Writers: 32, PerWriter: 5000})
//	if err == nil {
//	    err = res.Verify()
//	}
func Run(ctx context.Context, acc *stat.Accumulator, opts Options) (Result, error) {
	if acc == nil {
		return Result{}, ErrNilAccumulator
	}
	if err := opts.validate(); err != nil {
		return Result{}, err
	}

	res := Result{
		RunID:    uuid.NewString(),
		Expected: ExpectedFor(opts),
	}

	ctx, span := telemetry.StartSpan(ctx, "stress.Run", trace.WithAttributes(
		attribute.String("stress.run_id", res.RunID),
		attribute.Int("stress.writers", opts.Writers),
		attribute.Int("stress.per_writer", opts.PerWriter),
	))
	defer span.End()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = telemetry.LoggerWithTrace(ctx, logger).With(slog.String("run_id", res.RunID))
	logger.Info("stress run starting",
		slog.Int("writers", opts.Writers),
		slog.Int("per_writer", opts.PerWriter),
		slog.Int("offset", int(opts.Offset)),
		slog.Float64("rate_per_writer", opts.RatePerWriter),
	)

	blocks := make([][]int32, opts.Writers)
	for w := range blocks {
		blocks[w] = shuffledRange(opts.Offset+int32(w*opts.PerWriter), opts.PerWriter)
	}

	var ready sync.WaitGroup
	ready.Add(opts.Writers)
	start := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	for w := range blocks {
		var limiter *rate.Limiter
		if opts.RatePerWriter > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.RatePerWriter), 1)
		}
		g.Go(func() error {
			ready.Done()
			select {
			case <-start:
			case <-gctx.Done():
				return gctx.Err()
			}
			return write(gctx, acc, w, blocks[w], limiter)
		})
	}

	ready.Wait()
	began := time.Now()
	close(start)
	err := g.Wait()
	res.Duration = time.Since(began)

	snap, ok := acc.Snapshot()
	res.Summary, res.Empty = snap, !ok

	if err != nil {
		telemetry.RecordError(span, err)
		logger.Warn("stress run stopped", slog.String("error", err.Error()), slog.Int("count", int(snap.Count())))
		return res, err
	}

	logger.Info("stress run finished",
		slog.Duration("duration", res.Duration),
		slog.Int("count", int(snap.Count())),
		slog.Float64("throughput", res.Throughput()),
	)
	return res, nil
}

func write(ctx context.Context, acc *stat.Accumulator, id int, values []int32, limiter *rate.Limiter) error {
	ctx, span := telemetry.StartSpan(ctx, "stress.writer", trace.WithAttributes(
		attribute.Int("stress.writer", id),
	))
	defer span.End()

	for i, v := range values {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("writer %d: %w", id, err)
			}
		} else if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("writer %d: %w", id, err)
			}
		}
		if err := acc.Record(v); err != nil {
			telemetry.RecordError(span, err)
			return fmt.Errorf("writer %d: %w", id, err)
		}
	}
	return nil
}

func shuffledRange(offset int32, n int) []int32 {
	values := make([]int32, n)
	for i := range values {
		values[i] = offset + int32(i)
	}
	rand.Shuffle(n, func(i, j int) { values[i], values[j] = values[j], values[i] })
	return values
}
