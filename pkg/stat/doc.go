// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stat provides a lock-free running-statistics accumulator.
//
// An Accumulator tracks the smallest, largest and mean of every int32
// observation recorded into it. Any number of goroutines may call Record
// and the read methods concurrently; nothing blocks and nothing is lost.
//
// # Architecture
//
// The accumulator is a single atomic pointer to an immutable Summary:
//
//	┌──────────────────────────┐
//	│ Accumulator              │      ┌─────────────────────────┐
//	│   cell ──────────────────┼────► │ Summary (never mutated) │
//	│   atomic.Pointer[Summary]│      │ smallest largest        │
//	└──────────────────────────┘      │ count    sum            │
//	                                  └─────────────────────────┘
//
// Record reads the current Summary, folds the observation into a new one and
// installs it with CompareAndSwap. If another writer got there first the
// candidate is dropped and the loop starts again from a fresh read. A nil
// pointer means nothing has been recorded yet.
//
// # Basic Usage
//
//	acc := stat.New()
//	if err := acc.Record(42); err != nil {
//	    return fmt.Errorf("record: %w", err)
//	}
//	if avg, ok := acc.Average(); ok {
//	    fmt.Println(avg)
//	}
//
// # Count Limit
//
// The count is an int32. Once it reaches math.MaxInt32 every further Record
// fails with ErrCountOverflow and leaves the accumulator untouched. Ways to
// lift the limit exist but are not implemented here:
//
//  1. Keep a wider counter and a float64 mean instead of the exact sum, at
//     some cost in precision.
//  2. Close each full epoch into a list of per-epoch means and start over.
//  3. Nest (2) recursively, a list of lists of means, one level per 2^31
//     epochs of the level below.
//
// # Thread Safety
//
// Every method of Accumulator is safe for concurrent use. Summary values are
// immutable and may be shared without synchronization.
package stat
