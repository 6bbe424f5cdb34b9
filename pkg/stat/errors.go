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
	"errors"
	"fmt"
)

// ErrCountOverflow is returned by Record once the accumulator already holds
// math.MaxInt32 observations. The condition is permanent for that accumulator.
var ErrCountOverflow = errors.New("observation count overflow")

// OverflowError carries the state that caused an ErrCountOverflow.
//
// Use errors.Is(err, ErrCountOverflow) to detect it, or errors.As to get
// at the fields.
type OverflowError struct {
	// Count is the count of the Summary the observation was rejected by.
	Count int32

	// Observation is the value that could not be recorded.
	Observation int32
}

// Error implements the error interface.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("cannot record %d: %v (count=%d)", e.Observation, ErrCountOverflow, e.Count)
}

// Unwrap returns ErrCountOverflow.
func (e *OverflowError) Unwrap() error {
	return ErrCountOverflow
}
