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

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/statcell/pkg/stat"
)

// HandleObservations handles POST /v1/observations.
//
// Description:
//
//	Records the request's values in order. The first overflow stops the
//	batch; values before it stay recorded and the response is 409 with the
//	number recorded.
//
// Responses:
//
//	200 OK: ObservationsResponse
//	400 Bad Request: malformed body or too many values
//	409 Conflict: accumulator reached its count limit
func (s *Server) HandleObservations(c *gin.Context) {
	logger := s.logger.With(slog.String("handler", "HandleObservations"))

	var req ObservationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}
	if len(req.Values) > s.maxBatch {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Too many values",
			Code:    "BATCH_TOO_LARGE",
			Details: fmt.Sprintf("%d values, limit %d", len(req.Values), s.maxBatch),
		})
		return
	}

	for i, v := range req.Values {
		if err := s.acc.Record(v); err != nil {
			recorded := i
			if errors.Is(err, stat.ErrCountOverflow) {
				logger.Warn("Accumulator full", slog.Int("recorded", recorded), slog.Int("batch", len(req.Values)))
				c.JSON(http.StatusConflict, ErrorResponse{
					Error:    "Observation count limit reached",
					Code:     "COUNT_OVERFLOW",
					Details:  err.Error(),
					Recorded: &recorded,
				})
				return
			}
			logger.Error("Record failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Recorded: &recorded})
			return
		}
	}

	c.JSON(http.StatusOK, ObservationsResponse{
		Recorded: len(req.Values),
		Count:    s.acc.Count(),
	})
}

// HandleSummary handles GET /v1/summary.
//
// All fields come from one snapshot.
func (s *Server) HandleSummary(c *gin.Context) {
	c.JSON(http.StatusOK, summaryResponse(s.acc))
}

// HandleHealth handles GET /health.
func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func summaryResponse(acc Accumulator) SummaryResponse {
	snap, ok := acc.Snapshot()
	if !ok {
		return SummaryResponse{Empty: true}
	}
	smallest, largest, average := snap.Smallest(), snap.Largest(), snap.Average()
	return SummaryResponse{
		Count:    snap.Count(),
		Sum:      snap.Sum(),
		Smallest: &smallest,
		Largest:  &largest,
		Average:  &average,
	}
}
