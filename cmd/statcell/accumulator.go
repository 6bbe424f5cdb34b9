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
	"log/slog"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/statcell/internal/config"
	"github.com/AleutianAI/statcell/pkg/stat"
	"github.com/AleutianAI/statcell/pkg/telemetry"
)

// reportObserver counts contention for the terminal report and forwards
// every event to next.
type reportObserver struct {
	next      stat.Observer
	retries   atomic.Int64
	overflows atomic.Int64
}

// contention is what reportObserver counted during a run.
type contention struct {
	Retries   int64
	Overflows int64
}

func (o *reportObserver) counts() contention {
	return contention{Retries: o.retries.Load(), Overflows: o.overflows.Load()}
}

func (o *reportObserver) Recorded(retries int) {
	o.retries.Add(int64(retries))
	o.next.Recorded(retries)
}

func (o *reportObserver) Overflowed(count int32) {
	o.overflows.Add(1)
	o.next.Overflowed(count)
}

// initTelemetry installs the global providers from cfg. Prometheus output
// goes to reg.
func initTelemetry(ctx context.Context, cfg config.TelemetryConfig, reg prometheus.Registerer) (func(context.Context) error, error) {
	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	tcfg.TraceExporter = cfg.TraceExporter
	tcfg.MetricExporter = cfg.MetricExporter
	tcfg.OTLPEndpoint = cfg.OTLPEndpoint
	tcfg.OTLPInsecure = cfg.OTLPInsecure
	tcfg.Registerer = reg

	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return shutdown, nil
}

// oneShotTelemetry initializes telemetry for commands that exit after one
// run. Nothing scrapes such a process, so the Prometheus bridge is installed
// only when cfg.MetricsOut names a file for writeMetrics; otherwise the
// prometheus exporter is treated as none. reg is nil in that case.
func oneShotTelemetry(ctx context.Context, cfg config.TelemetryConfig) (*prometheus.Registry, func(context.Context) error, error) {
	var reg *prometheus.Registry
	var registerer prometheus.Registerer
	if cfg.MetricExporter == telemetry.ExporterPrometheus {
		if cfg.MetricsOut == "" {
			logger.Debug("no metrics output file, prometheus exporter disabled for this command")
			cfg.MetricExporter = telemetry.ExporterNone
		} else {
			reg = prometheus.NewRegistry()
			registerer = reg
		}
	}
	shutdown, err := initTelemetry(ctx, cfg, registerer)
	if err != nil {
		return nil, nil, err
	}
	return reg, shutdown, nil
}

// writeMetrics writes the text exposition of reg to path. A nil reg is a
// no-op.
func writeMetrics(path string, reg *prometheus.Registry) error {
	if reg == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	logger.Info("metrics written", slog.String("path", path))
	return nil
}

// newAccumulator builds the accumulator every subcommand uses, with the
// OTel observer attached and backoff per cfg.
func newAccumulator(name string, backoff bool) (*stat.Accumulator, *reportObserver, error) {
	otelObs, err := telemetry.NewObserver(otel.Meter(telemetry.TracerName), name)
	if err != nil {
		return nil, nil, fmt.Errorf("create observer: %w", err)
	}
	obs := &reportObserver{next: otelObs}

	opts := []stat.Option{stat.WithObserver(obs)}
	if backoff {
		opts = append(opts, stat.WithBackoff(stat.SpinBackoff{}))
	}
	return stat.New(opts...), obs, nil
}
