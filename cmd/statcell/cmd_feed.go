// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/statcell/pkg/stat"
)

// feedStats counts what feed did with its input.
type feedStats struct {
	Lines    int
	Recorded int
	Skipped  int
}

func runFeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, shutdown, err := oneShotTelemetry(ctx, appConfig.Telemetry)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	acc, obs, err := newAccumulator("feed", appConfig.Stress.Backoff)
	if err != nil {
		return err
	}

	stats, feedErr := feed(ctx, cmd.InOrStdin(), acc, logger)
	snap, ok := acc.Snapshot()
	fmt.Fprintln(cmd.OutOrStdout(), renderFeedReport(snap, ok, stats, obs.counts(), feedErr))
	if feedErr != nil {
		return feedErr
	}
	return writeMetrics(appConfig.Telemetry.MetricsOut, reg)
}

// feed records one integer per line of r into acc.
//
// Blank lines are ignored. Lines that are not int32 are logged and skipped.
// The first Record error stops the feed and is returned.
func feed(ctx context.Context, r io.Reader, acc *stat.Accumulator, logger *slog.Logger) (feedStats, error) {
	var stats feedStats
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		n, err := strconv.ParseInt(line, 10, 32)
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping line", slog.Int("line", stats.Lines), slog.String("error", err.Error()))
			continue
		}
		if err := acc.Record(int32(n)); err != nil {
			return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}
		stats.Recorded++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	return stats, nil
}
