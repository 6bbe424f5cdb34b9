// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

// MaxBatch is the hard upper bound on values in one observations request.
const MaxBatch = 10000

// ObservationsRequest is the body of POST /v1/observations.
type ObservationsRequest struct {
	// Values are recorded in order. Values outside int32 fail binding.
	Values []int32 `json:"values" binding:"required,min=1,max=10000"`
}

// ObservationsResponse is returned when every value was recorded.
type ObservationsResponse struct {
	// Recorded is how many values from the request were recorded.
	Recorded int `json:"recorded"`

	// Count is the accumulator's count when the response was built. Other
	// requests may have recorded values in between, so it is at least
	// Recorded, not necessarily the count right after this batch.
	Count int32 `json:"count"`
}

// SummaryResponse is the body of GET /v1/summary.
//
// Smallest, Largest and Average are omitted while Empty is true.
type SummaryResponse struct {
	Empty    bool     `json:"empty"`
	Count    int32    `json:"count"`
	Sum      int64    `json:"sum"`
	Smallest *int32   `json:"smallest,omitempty"`
	Largest  *int32   `json:"largest,omitempty"`
	Average  *float64 `json:"average,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`

	// Recorded is set on overflow: how many values of the batch were
	// recorded before the accumulator filled.
	Recorded *int `json:"recorded,omitempty"`
}
