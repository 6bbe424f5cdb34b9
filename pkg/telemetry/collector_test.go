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
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/statcell/pkg/stat"
)

func TestCollector_Empty(t *testing.T) {
	c := NewCollector(stat.New(), CollectorOpts{})

	assert.Equal(t, 2, testutil.CollectAndCount(c))

	expected := `
# HELP statcell_accumulator_observations_total Number of observations recorded.
# TYPE statcell_accumulator_observations_total counter
statcell_accumulator_observations_total 0
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "statcell_accumulator_observations_total")
	assert.NoError(t, err)
}

func TestCollector_Values(t *testing.T) {
	acc := stat.New()
	for _, n := range []int32{1, 2, 3} {
		require.NoError(t, acc.Record(n))
	}
	c := NewCollector(acc, CollectorOpts{})

	assert.Equal(t, 5, testutil.CollectAndCount(c))

	expected := `
# HELP statcell_accumulator_average Arithmetic mean of all observations.
# TYPE statcell_accumulator_average gauge
statcell_accumulator_average 2
# HELP statcell_accumulator_largest Largest observation recorded.
# TYPE statcell_accumulator_largest gauge
statcell_accumulator_largest 3
# HELP statcell_accumulator_observations_total Number of observations recorded.
# TYPE statcell_accumulator_observations_total counter
statcell_accumulator_observations_total 3
# HELP statcell_accumulator_smallest Smallest observation recorded.
# TYPE statcell_accumulator_smallest gauge
statcell_accumulator_smallest 1
# HELP statcell_accumulator_sum_of_observations Exact sum of all observations.
# TYPE statcell_accumulator_sum_of_observations gauge
statcell_accumulator_sum_of_observations 6
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

func TestCollector_CustomNamesAndLabels(t *testing.T) {
	acc := stat.New()
	require.NoError(t, acc.Record(-7))

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(acc, CollectorOpts{
		Namespace:   "app",
		Subsystem:   "latency",
		ConstLabels: prometheus.Labels{"accumulator": "db"},
	}))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 5)

	for _, mf := range families {
		assert.True(t, strings.HasPrefix(mf.GetName(), "app_latency_"), mf.GetName())
		require.Len(t, mf.GetMetric(), 1)
		labels := mf.GetMetric()[0].GetLabel()
		require.Len(t, labels, 1)
		assert.Equal(t, "accumulator", labels[0].GetName())
		assert.Equal(t, "db", labels[0].GetValue())

		if mf.GetName() == "app_latency_smallest" {
			assert.Equal(t, -7.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
}
