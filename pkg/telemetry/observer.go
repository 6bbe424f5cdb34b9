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
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/statcell/pkg/stat"
)

// Observer records accumulator contention with OpenTelemetry instruments.
//
// Description:
//
//	Implements stat.Observer. Instruments are created once in NewObserver;
//	the per-record path only adds to them, which the OTel SDK does without
//	locks on the hot path.
//
// Thread Safety: Safe for concurrent use.
type Observer struct {
	attrs metric.MeasurementOption

	// RecordsTotal counts successful Record calls.
	RecordsTotal metric.Int64Counter

	// RetriesTotal counts lost CompareAndSwap races.
	RetriesTotal metric.Int64Counter

	// RetriesPerRecord is the distribution of lost races per successful Record.
	RetriesPerRecord metric.Int64Histogram

	// OverflowsTotal counts observations rejected with ErrCountOverflow.
	OverflowsTotal metric.Int64Counter
}

// NewObserver registers the observer's instruments on meter.
//
// Inputs:
//
//	meter - The OTel meter, e.g. otel.Meter("statcell").
//	name - Value of the "accumulator" attribute on every measurement.
//
// Outputs:
//
//	*Observer - Ready to pass to stat.WithObserver.
//	error - Non-nil if an instrument cannot be created.
//
// Example:
//
//	obs, err := telemetry.NewObserver(otel.Meter("statcell"), "requests")
//	if err != nil {
//	    return fmt.Errorf("create observer: %w", err)
//	}
//	acc := stat.New(stat.WithObserver(obs))
func NewObserver(meter metric.Meter, name string) (*Observer, error) {
	o := &Observer{
		attrs: metric.WithAttributeSet(attribute.NewSet(attribute.String("accumulator", name))),
	}
	var err error

	o.RecordsTotal, err = meter.Int64Counter(
		"statcell_records_total",
		metric.WithDescription("Total number of observations recorded"),
	)
	if err != nil {
		return nil, fmt.Errorf("records counter: %w", err)
	}

	o.RetriesTotal, err = meter.Int64Counter(
		"statcell_cas_retries_total",
		metric.WithDescription("Total number of lost compare-and-swap attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("retries counter: %w", err)
	}

	o.RetriesPerRecord, err = meter.Int64Histogram(
		"statcell_cas_retries_per_record",
		metric.WithDescription("Lost compare-and-swap attempts per recorded observation"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 4, 8, 16, 32, 64, 128),
	)
	if err != nil {
		return nil, fmt.Errorf("retries histogram: %w", err)
	}

	o.OverflowsTotal, err = meter.Int64Counter(
		"statcell_overflows_total",
		metric.WithDescription("Total number of observations rejected by a full accumulator"),
	)
	if err != nil {
		return nil, fmt.Errorf("overflows counter: %w", err)
	}

	return o, nil
}

// Recorded implements stat.Observer.
func (o *Observer) Recorded(retries int) {
	ctx := context.Background()
	o.RecordsTotal.Add(ctx, 1, o.attrs)
	if retries > 0 {
		o.RetriesTotal.Add(ctx, int64(retries), o.attrs)
	}
	o.RetriesPerRecord.Record(ctx, int64(retries), o.attrs)
}

// Overflowed implements stat.Observer.
func (o *Observer) Overflowed(int32) {
	o.OverflowsTotal.Add(context.Background(), 1, o.attrs)
}

var _ stat.Observer = (*Observer)(nil)
