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
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/AleutianAI/statcell/internal/config"
	"github.com/AleutianAI/statcell/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	configPath     string
	logLevel       string
	logJSON        bool
	metricExporter string
	traceExporter  string

	// stress flags
	writers       int
	perWriter     int
	offset        int32
	ratePerWriter float64
	useBackoff    bool

	// stress and feed flags
	metricsOut string

	// serve flags
	serveAddr string

	// Populated by loadSettings before any subcommand runs.
	appConfig config.Config
	logger    = slog.Default()
	logCloser io.Closer

	rootCmd = &cobra.Command{
		Use:   "statcell",
		Short: "Lock-free running statistics over int32 observations",
		Long: `statcell records int32 observations into a single lock-free cell and
reports count, sum, smallest, largest and average.`,
		SilenceUsage:       true,
		PersistentPreRunE:  loadSettings,
		PersistentPostRunE: closeSettings,
	}

	stressCmd = &cobra.Command{
		Use:   "stress",
		Short: "Record shuffled ranges from many goroutines and verify the result",
		Args:  cobra.NoArgs,
		RunE:  runStress, // Defined in cmd_stress.go
	}

	feedCmd = &cobra.Command{
		Use:   "feed",
		Short: "Record one integer per line from stdin and print the summary",
		Args:  cobra.NoArgs,
		RunE:  runFeed, // Defined in cmd_feed.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve one accumulator over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the statcell version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "statcell %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a statcell YAML config file")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&logJSON, "log-json", false, "Force JSON log output")
	pf.StringVar(&metricExporter, "metrics-exporter", "", "Metric exporter: prometheus, stdout, none")
	pf.StringVar(&traceExporter, "trace-exporter", "", "Trace exporter: otlp, stdout, none")

	rootCmd.AddCommand(stressCmd)
	stressCmd.Flags().IntVarP(&writers, "writers", "w", 0, "Number of concurrent writers")
	stressCmd.Flags().IntVarP(&perWriter, "per-writer", "n", 0, "Values recorded by each writer")
	stressCmd.Flags().Int32Var(&offset, "offset", 0, "First value of every writer's range")
	stressCmd.Flags().Float64Var(&ratePerWriter, "rate", 0, "Records per second per writer (0 = unlimited)")
	stressCmd.Flags().BoolVar(&useBackoff, "backoff", false, "Spin-yield between lost compare-and-swap attempts")

	stressCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write Prometheus metrics to this file after the run")

	rootCmd.AddCommand(feedCmd)
	feedCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write Prometheus metrics to this file after the run")
	feedCmd.Flags().BoolVar(&useBackoff, "backoff", false, "Spin-yield between lost compare-and-swap attempts")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, e.g. :8080")
	serveCmd.Flags().BoolVar(&useBackoff, "backoff", false, "Spin-yield between lost compare-and-swap attempts")

	rootCmd.AddCommand(versionCmd)
}

// loadSettings reads the config file, applies flag overrides and builds
// the logger.
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd.Flags(), &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	appConfig = cfg
	logger, logCloser = logging.New(logging.Config{
		Level:   level,
		Service: "statcell",
		JSON:    cfg.Log.JSON,
		Output:  cmd.ErrOrStderr(),
		LogDir:  cfg.Log.Dir,
	})
	slog.SetDefault(logger)
	return nil
}

func closeSettings(cmd *cobra.Command, args []string) error {
	if logCloser == nil {
		return nil
	}
	return logCloser.Close()
}

// applyFlagOverrides copies explicitly set flags over cfg.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = logJSON
	}
	if flags.Changed("metrics-exporter") {
		cfg.Telemetry.MetricExporter = metricExporter
	}
	if flags.Changed("trace-exporter") {
		cfg.Telemetry.TraceExporter = traceExporter
	}
	if flags.Changed("metrics-out") {
		cfg.Telemetry.MetricsOut = metricsOut
	}
	if flags.Changed("writers") {
		cfg.Stress.Writers = writers
	}
	if flags.Changed("per-writer") {
		cfg.Stress.PerWriter = perWriter
	}
	if flags.Changed("offset") {
		cfg.Stress.Offset = offset
	}
	if flags.Changed("rate") {
		cfg.Stress.RatePerWriter = ratePerWriter
	}
	if flags.Changed("backoff") {
		cfg.Stress.Backoff = useBackoff
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
}
