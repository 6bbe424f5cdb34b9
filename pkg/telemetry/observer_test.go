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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AleutianAI/statcell/pkg/stat"
)

// collectSum returns the summed value of the int64 counter named name.
func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func newTestObserver(t *testing.T) (*Observer, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	obs, err := NewObserver(provider.Meter("statcell-test"), "test")
	require.NoError(t, err)
	return obs, reader
}

func TestNewObserver_Instruments(t *testing.T) {
	obs, _ := newTestObserver(t)

	assert.NotNil(t, obs.RecordsTotal)
	assert.NotNil(t, obs.RetriesTotal)
	assert.NotNil(t, obs.RetriesPerRecord)
	assert.NotNil(t, obs.OverflowsTotal)
}

func TestObserver_DirectCalls(t *testing.T) {
	obs, reader := newTestObserver(t)

	obs.Recorded(0)
	obs.Recorded(3)
	obs.Recorded(1)
	obs.Overflowed(2147483647)

	assert.Equal(t, int64(3), collectSum(t, reader, "statcell_records_total"))
	assert.Equal(t, int64(4), collectSum(t, reader, "statcell_cas_retries_total"))
	assert.Equal(t, int64(1), collectSum(t, reader, "statcell_overflows_total"))
}

func TestObserver_WiredIntoAccumulator(t *testing.T) {
	obs, reader := newTestObserver(t)
	acc := stat.New(stat.WithObserver(obs))

	const writers, perWriter = 8, 500
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, acc.Record(int32(w*perWriter+i)))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(writers*perWriter), collectSum(t, reader, "statcell_records_total"))
	assert.Equal(t, int32(writers*perWriter), acc.Count())
	assert.Zero(t, collectSum(t, reader, "statcell_overflows_total"))
}

func TestObserver_RetriesHistogram(t *testing.T) {
	obs, reader := newTestObserver(t)
	obs.Recorded(0)
	obs.Recorded(5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "statcell_cas_retries_per_record" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[int64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)
			assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
			assert.Equal(t, int64(5), hist.DataPoints[0].Sum)
			found = true
		}
	}
	assert.True(t, found)
}
