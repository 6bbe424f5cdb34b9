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

import "runtime"

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithBackoff sets the backoff applied between failed CompareAndSwap attempts.
//
// Backoff only changes how contended writers spend time. It never changes
// what is recorded. A nil backoff is ignored.
func WithBackoff(b Backoff) Option {
	return func(a *Accumulator) {
		if b != nil {
			a.backoff = b
		}
	}
}

// WithObserver sets the hook notified after every Record outcome.
// A nil observer is ignored.
func WithObserver(o Observer) Option {
	return func(a *Accumulator) {
		if o != nil {
			a.observer = o
		}
	}
}

// =============================================================================
// Backoff
// =============================================================================

// Backoff decides what a writer does after losing a CompareAndSwap race.
//
// # Thread Safety
//
// Implementations are shared by all writers and must be safe for concurrent
// use. They must not block for long: Record is expected to finish quickly.
type Backoff interface {
	// Wait is called with the number of failed attempts so far (>= 1).
	Wait(attempt int)
}

// noBackoff retries immediately.
type noBackoff struct{}

func (noBackoff) Wait(int) {}

// SpinBackoff yields the processor 2^(attempt-1) times, capped at Max yields.
//
// The zero value uses a cap of 64.
type SpinBackoff struct {
	// Max is the largest number of yields per attempt.
	// Default: 64
	Max int
}

// Wait implements Backoff.
func (b SpinBackoff) Wait(attempt int) {
	limit := b.Max
	if limit <= 0 {
		limit = 64
	}
	n := 1
	for i := 1; i < attempt && n < limit; i++ {
		n <<= 1
	}
	n = min(n, limit)
	for i := 0; i < n; i++ {
		runtime.Gosched()
	}
}

// =============================================================================
// Observer
// =============================================================================

// Observer receives the outcome of every Record call.
//
// Observers are called on the writer's goroutine after the outcome is final,
// so they must be cheap and safe for concurrent use. The telemetry package
// provides an OpenTelemetry-backed implementation.
type Observer interface {
	// Recorded is called after a successful install. retries is the number
	// of CompareAndSwap attempts that lost before the winning one.
	Recorded(retries int)

	// Overflowed is called when an observation is rejected with
	// ErrCountOverflow. count is the count of the rejecting Summary.
	Overflowed(count int32)
}

type nopObserver struct{}

func (nopObserver) Recorded(int)     {}
func (nopObserver) Overflowed(int32) {}

var (
	_ Backoff  = noBackoff{}
	_ Backoff  = SpinBackoff{}
	_ Observer = nopObserver{}
)
