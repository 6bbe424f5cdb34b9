// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the statcell YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure returned from Load
// and Validate.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Config is the root of statcell.yaml.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Stress    StressConfig    `yaml:"stress"`
	Server    ServerConfig    `yaml:"server"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir,omitempty"` // e.g. ~/.statcell/logs
}

type TelemetryConfig struct {
	// TraceExporter is "none", "stdout" or "otlp".
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`

	// MetricExporter is "none", "stdout" or "prometheus".
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`

	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty" validate:"required_if=TraceExporter otlp"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`

	// MetricsOut is where one-shot commands (stress, feed) write the
	// Prometheus text exposition after the run. Without it those commands
	// install no Prometheus bridge.
	MetricsOut string `yaml:"metrics_out,omitempty"`
}

type StressConfig struct {
	Writers   int   `yaml:"writers" validate:"gte=1,lte=4096"`
	PerWriter int   `yaml:"per_writer" validate:"gte=1,lte=100000000"`
	Offset    int32 `yaml:"offset"`

	// RatePerWriter limits each writer to this many records per second.
	// Zero means unlimited.
	RatePerWriter float64 `yaml:"rate_per_writer" validate:"gte=0"`

	// Backoff enables stat.SpinBackoff on the accumulator.
	Backoff bool `yaml:"backoff"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`

	// MaxBatch caps the number of values in one POST /v1/observations.
	MaxBatch int `yaml:"max_batch" validate:"gte=1,lte=10000"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
		},
		Stress: StressConfig{
			Writers:   32,
			PerWriter: 5000,
			Offset:    -20,
		},
		Server: ServerConfig{
			Addr:     ":8080",
			MaxBatch: 10000,
		},
	}
}

// Load reads path over DefaultConfig and validates the result.
//
// # Description
//
// An empty path returns the defaults. Keys missing from the file keep their
// default values.
//
// # Outputs
//
//   - Config: The merged configuration.
//   - error: Read or parse failures, or a validation failure wrapping
//     ErrInvalidConfig.
//
// # Examples
//
//	cfg, err := config.Load("statcell.yaml")
//	if errors.Is(err, config.ErrInvalidConfig) {
//	    // bad values in the file
//	}
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, f.Namespace(), f.Tag(), f.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
