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
	"fmt"
	"math"
)

// Summary is an immutable snapshot of the statistics at one point in the
// update sequence.
//
// A Summary reachable from an Accumulator always satisfies
// Smallest() <= Largest(), Count() >= 1, and Sum() equal to the exact sum of
// the folded observations. The zero value is not a valid snapshot; it is only
// returned alongside ok == false.
type Summary struct {
	smallest int32
	largest  int32
	count    int32
	sum      int64
}

// Smallest returns the minimum observation.
func (s Summary) Smallest() int32 { return s.smallest }

// Largest returns the maximum observation.
func (s Summary) Largest() int32 { return s.largest }

// Count returns the number of observations.
func (s Summary) Count() int32 { return s.count }

// Sum returns the exact sum of all observations.
func (s Summary) Sum() int64 { return s.sum }

// Average returns Sum()/Count() computed in floating point.
func (s Summary) Average() float64 {
	return float64(s.sum) / float64(s.count)
}

// String formats the summary for logs.
func (s Summary) String() string {
	return fmt.Sprintf("count=%d sum=%d smallest=%d largest=%d average=%g",
		s.count, s.sum, s.smallest, s.largest, s.Average())
}

// fold returns a new Summary with n added to old. A nil old starts a new
// Summary. fold never modifies old.
func fold(old *Summary, n int32) (*Summary, error) {
	if old == nil {
		return &Summary{smallest: n, largest: n, count: 1, sum: int64(n)}, nil
	}
	if old.count == math.MaxInt32 {
		return nil, &OverflowError{Count: old.count, Observation: n}
	}
	return &Summary{
		smallest: min(old.smallest, n),
		largest:  max(old.largest, n),
		count:    old.count + 1,
		sum:      old.sum + int64(n),
	}, nil
}
