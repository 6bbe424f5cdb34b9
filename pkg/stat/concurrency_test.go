// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stat

import (
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingObserver tallies Record outcomes.
type countingObserver struct {
	recorded   atomic.Int64
	retries    atomic.Int64
	overflowed atomic.Int64
}

func (o *countingObserver) Recorded(retries int) {
	o.recorded.Add(1)
	o.retries.Add(int64(retries))
}

func (o *countingObserver) Overflowed(int32) {
	o.overflowed.Add(1)
}

// runWriters starts writers goroutines that each record a disjoint, shuffled
// block of perWriter consecutive integers beginning at offset. All writers
// wait on a shared start gate so they contend from the first record.
func runWriters(t *testing.T, acc *Accumulator, writers, perWriter int, offset int32) {
	t.Helper()

	start := make(chan struct{})
	var ready, done sync.WaitGroup
	errs := make(chan error, writers)

	for w := 0; w < writers; w++ {
		ready.Add(1)
		done.Add(1)
		go func(w int) {
			defer done.Done()

			numbers := make([]int32, perWriter)
			base := offset + int32(w*perWriter)
			for i := range numbers {
				numbers[i] = base + int32(i)
			}
			rand.Shuffle(len(numbers), func(i, j int) {
				numbers[i], numbers[j] = numbers[j], numbers[i]
			})

			ready.Done()
			<-start

			for _, n := range numbers {
				if err := acc.Record(n); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}

	ready.Wait()
	close(start)
	done.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestAccumulator_ConcurrentWriters(t *testing.T) {
	const (
		writers   = 32
		perWriter = 5000
		offset    = int32(-20)
	)

	observer := &countingObserver{}
	acc := New(WithObserver(observer))
	runWriters(t, acc, writers, perWriter, offset)

	total := writers * perWriter
	s, ok := acc.Snapshot()
	require.True(t, ok)

	assert.Equal(t, int32(total), s.Count(), "every successful Record must be counted exactly once")
	assert.Equal(t, offset, s.Smallest())
	assert.Equal(t, offset+int32(total-1), s.Largest())
	assert.InDelta(t, float64(offset)+float64(total-1)/2, s.Average(), eps)

	wantSum := int64(total)*int64(offset) + int64(total)*int64(total-1)/2
	assert.Equal(t, wantSum, s.Sum())

	assert.Equal(t, int64(total), observer.recorded.Load())
	assert.Zero(t, observer.overflowed.Load())
}

func TestAccumulator_ConcurrentWritersWithBackoff(t *testing.T) {
	const (
		writers   = 16
		perWriter = 2000
	)

	acc := New(WithBackoff(SpinBackoff{Max: 8}))
	runWriters(t, acc, writers, perWriter, math.MinInt32)

	s, ok := acc.Snapshot()
	require.True(t, ok)
	assert.Equal(t, int32(writers*perWriter), s.Count())
	assert.Equal(t, int32(math.MinInt32), s.Smallest())
	assert.Equal(t, int32(math.MinInt32+writers*perWriter-1), s.Largest())
}

func TestAccumulator_ConcurrentReadersSeeValidSummaries(t *testing.T) {
	const (
		writers   = 8
		perWriter = 2000
	)

	acc := New()
	stop := make(chan struct{})
	var readers sync.WaitGroup
	var violations atomic.Int64

	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			var lastCount int32
			for {
				select {
				case <-stop:
					return
				default:
				}
				s, ok := acc.Snapshot()
				if !ok {
					continue
				}
				if s.Smallest() > s.Largest() || s.Count() < 1 || s.Count() < lastCount {
					violations.Add(1)
				}
				lastCount = s.Count()
			}
		}()
	}

	runWriters(t, acc, writers, perWriter, 0)
	close(stop)
	readers.Wait()

	assert.Zero(t, violations.Load(), "readers observed an invalid or regressing Summary")
	assert.Equal(t, int32(writers*perWriter), acc.Count())
}

func TestAccumulator_NoLostUpdatesNearLimit(t *testing.T) {
	const writers = 8

	// Leave room for exactly 100 more observations.
	observer := &countingObserver{}
	acc := New(WithObserver(observer))
	seedAt(acc, math.MaxInt32-100)

	var accepted atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := acc.Record(1); err == nil {
					accepted.Add(1)
				} else {
					assert.ErrorIs(t, err, ErrCountOverflow)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), accepted.Load())
	assert.Equal(t, int32(math.MaxInt32), acc.Count())
	assert.Equal(t, int64(writers*50-100), observer.overflowed.Load())
}

func TestSpinBackoff_Wait(t *testing.T) {
	tests := []struct {
		name    string
		backoff SpinBackoff
		attempt int
	}{
		{"zero value first attempt", SpinBackoff{}, 1},
		{"zero value deep attempt", SpinBackoff{}, 1000},
		{"small cap", SpinBackoff{Max: 2}, 10},
		{"negative cap uses default", SpinBackoff{Max: -1}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() { tt.backoff.Wait(tt.attempt) })
		})
	}
}

func TestOptions_NilIgnored(t *testing.T) {
	acc := New(WithBackoff(nil), WithObserver(nil))
	require.NoError(t, acc.Record(1))
	assert.Equal(t, int32(1), acc.Count())
}

func BenchmarkAccumulator_Record(b *testing.B) {
	acc := New()
	b.RunParallel(func(pb *testing.PB) {
		var n int32
		for pb.Next() {
			_ = acc.Record(n)
			n++
		}
	})
}

func BenchmarkAccumulator_RecordSpinBackoff(b *testing.B) {
	acc := New(WithBackoff(SpinBackoff{}))
	b.RunParallel(func(pb *testing.PB) {
		var n int32
		for pb.Next() {
			_ = acc.Record(n)
			n++
		}
	})
}

func BenchmarkAccumulator_Average(b *testing.B) {
	acc := New()
	_ = acc.Record(1)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = acc.Average()
		}
	})
}
