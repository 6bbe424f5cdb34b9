// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/statcell/pkg/stat"
)

// Snapshotter is anything that can hand out a consistent Summary.
// *stat.Accumulator satisfies it.
type Snapshotter interface {
	Snapshot() (stat.Summary, bool)
}

// CollectorOpts names the metrics exported by a Collector.
type CollectorOpts struct {
	// Namespace prefixes every metric name.
	// Default: "statcell"
	Namespace string

	// Subsystem follows the namespace.
	// Default: "accumulator"
	Subsystem string

	// ConstLabels are attached to every metric, e.g. {"accumulator": "latency"}.
	ConstLabels prometheus.Labels
}

// Collector exports one accumulator as Prometheus metrics.
//
// # Description
//
// Each scrape takes a single Snapshot, so the exported count, sum, extremes
// and average always belong to the same installed Summary. Extremes and the
// average are omitted while the accumulator is empty.
//
// # Thread Safety
//
// Safe for concurrent scrapes; Collect never blocks writers.
type Collector struct {
	src Snapshotter

	count    *prometheus.Desc
	sum      *prometheus.Desc
	smallest *prometheus.Desc
	largest  *prometheus.Desc
	average  *prometheus.Desc
}

// NewCollector creates a Collector for src.
//
// # Example
//
//	acc := stat.New()
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(telemetry.NewCollector(acc, telemetry.CollectorOpts{}))
func NewCollector(src Snapshotter, opts CollectorOpts) *Collector {
	if opts.Namespace == "" {
		opts.Namespace = "statcell"
	}
	if opts.Subsystem == "" {
		opts.Subsystem = "accumulator"
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(opts.Namespace, opts.Subsystem, name),
			help, nil, opts.ConstLabels,
		)
	}
	return &Collector{
		src:      src,
		count:    desc("observations_total", "Number of observations recorded."),
		sum:      desc("sum_of_observations", "Exact sum of all observations."),
		smallest: desc("smallest", "Smallest observation recorded."),
		largest:  desc("largest", "Largest observation recorded."),
		average:  desc("average", "Arithmetic mean of all observations."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.count
	ch <- c.sum
	ch <- c.smallest
	ch <- c.largest
	ch <- c.average
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s, ok := c.src.Snapshot()
	if !ok {
		ch <- prometheus.MustNewConstMetric(c.count, prometheus.CounterValue, 0)
		ch <- prometheus.MustNewConstMetric(c.sum, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.count, prometheus.CounterValue, float64(s.Count()))
	ch <- prometheus.MustNewConstMetric(c.sum, prometheus.GaugeValue, float64(s.Sum()))
	ch <- prometheus.MustNewConstMetric(c.smallest, prometheus.GaugeValue, float64(s.Smallest()))
	ch <- prometheus.MustNewConstMetric(c.largest, prometheus.GaugeValue, float64(s.Largest()))
	ch <- prometheus.MustNewConstMetric(c.average, prometheus.GaugeValue, s.Average())
}

var _ prometheus.Collector = (*Collector)(nil)
