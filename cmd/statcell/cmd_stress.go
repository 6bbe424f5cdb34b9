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
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/statcell/internal/stress"
)

func runStress(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, shutdown, err := oneShotTelemetry(ctx, appConfig.Telemetry)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	sc := appConfig.Stress
	acc, obs, err := newAccumulator("stress", sc.Backoff)
	if err != nil {
		return err
	}

	res, runErr := stress.Run(ctx, acc, stress.Options{
		Writers:       sc.Writers,
		PerWriter:     sc.PerWriter,
		Offset:        sc.Offset,
		RatePerWriter: sc.RatePerWriter,
		Logger:        logger,
	})
	verifyErr := runErr
	if verifyErr == nil {
		verifyErr = res.Verify()
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderStressReport(res, obs.counts(), verifyErr))
	if verifyErr != nil {
		return fmt.Errorf("stress run %s: %w", res.RunID, verifyErr)
	}
	return writeMetrics(appConfig.Telemetry.MetricsOut, reg)
}
