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

import "sync/atomic"

// Stat is the read/write surface of a running-statistics accumulator.
//
// The read methods return ok == false until the first observation has been
// recorded.
type Stat interface {
	// Record folds n into the running statistics.
	Record(n int32) error

	// Smallest returns the minimum observation so far.
	Smallest() (int32, bool)

	// Largest returns the maximum observation so far.
	Largest() (int32, bool)

	// Average returns the arithmetic mean of all observations so far.
	Average() (float64, bool)
}

// Accumulator is a lock-free Stat.
//
// # Description
//
// Accumulator holds one atomic pointer to the current immutable Summary.
// Writers replace it with CompareAndSwap; readers load it. A nil pointer is
// the empty state, so "no observations" is never confused with a Summary
// that holds a single zero.
//
// # Thread Safety
//
// Accumulator is safe for concurrent use. It must not be copied after first
// use.
//
// # Progress
//
// Record is lock-free but not wait-free: some writer always succeeds, but an
// individual writer may retry any number of times under contention. A Backoff
// can be configured to spread retries out.
type Accumulator struct {
	cell     atomic.Pointer[Summary]
	backoff  Backoff
	observer Observer
}

// New creates an empty Accumulator.
//
// # Example
//
//	acc := stat.New(
//	    stat.WithBackoff(stat.SpinBackoff{Max: 32}),
//	    stat.WithObserver(observer),
//	)
func New(opts ...Option) *Accumulator {
	a := &Accumulator{
		backoff:  noBackoff{},
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record folds n into the running statistics.
//
// # Description
//
// Reads the current Summary, builds a successor that includes n, and installs
// it only if the cell still holds the Summary that was read. A lost race
// discards the successor and starts over from a fresh read. There is no
// retry limit.
//
// # Outputs
//
//   - error: an *OverflowError wrapping ErrCountOverflow when the count is
//     already math.MaxInt32. The accumulator is left exactly as it was.
func (a *Accumulator) Record(n int32) error {
	for retries := 0; ; retries++ {
		old := a.cell.Load()
		next, err := fold(old, n)
		if err != nil {
			a.observer.Overflowed(old.count)
			return err
		}
		if a.cell.CompareAndSwap(old, next) {
			a.observer.Recorded(retries)
			return nil
		}
		a.backoff.Wait(retries + 1)
	}
}

// Smallest returns the minimum observation, or false if nothing was recorded.
func (a *Accumulator) Smallest() (int32, bool) {
	s := a.cell.Load()
	if s == nil {
		return 0, false
	}
	return s.smallest, true
}

// Largest returns the maximum observation, or false if nothing was recorded.
func (a *Accumulator) Largest() (int32, bool) {
	s := a.cell.Load()
	if s == nil {
		return 0, false
	}
	return s.largest, true
}

// Average returns the mean of all observations, or false if nothing was
// recorded. The division is done in floating point.
func (a *Accumulator) Average() (float64, bool) {
	s := a.cell.Load()
	if s == nil {
		return 0, false
	}
	return s.Average(), true
}

// Count returns the number of recorded observations.
func (a *Accumulator) Count() int32 {
	s := a.cell.Load()
	if s == nil {
		return 0
	}
	return s.count
}

// Snapshot returns the current Summary by value.
//
// All fields of the returned Summary come from the same installed state, so
// callers that need more than one statistic should prefer Snapshot over
// separate calls to Smallest, Largest and Average.
func (a *Accumulator) Snapshot() (Summary, bool) {
	s := a.cell.Load()
	if s == nil {
		return Summary{}, false
	}
	return *s, true
}

var _ Stat = (*Accumulator)(nil)
