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
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/statcell/internal/server"
)

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// OTel instruments and the accumulator collector share one /metrics.
	reg := prometheus.NewRegistry()
	shutdown, err := initTelemetry(ctx, appConfig.Telemetry, reg)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	acc, _, err := newAccumulator("serve", appConfig.Stress.Backoff)
	if err != nil {
		return err
	}

	if appConfig.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.New(acc, server.Options{
		MaxBatch: appConfig.Server.MaxBatch,
		Logger:   logger,
		Registry: reg,
	})
	if err != nil {
		return err
	}

	if err := srv.Run(ctx, appConfig.Server.Addr); err != nil {
		logger.Error("Server stopped", slog.String("error", err.Error()))
		return err
	}
	return nil
}
