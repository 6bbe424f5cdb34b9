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
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/statcell/internal/stress"
	"github.com/AleutianAI/statcell/pkg/stat"
)

// Brand colors
const (
	colorTealBright = lipgloss.Color("#2CD7C7")
	colorTealDeep   = lipgloss.Color("#16858E")
	colorSlate      = lipgloss.Color("#2C4A54")
	colorError      = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorTealBright),
	Label:   lipgloss.NewStyle().Foreground(colorSlate).Width(12),
	Value:   lipgloss.NewStyle().Bold(true),
	Success: lipgloss.NewStyle().Foreground(colorTealBright),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorTealDeep).
		Padding(0, 1),
}

type reportRow struct {
	label string
	value string
}

func renderBox(title string, rows []reportRow, status string) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(title))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(styles.Label.Render(r.label))
		b.WriteString(styles.Value.Render(r.value))
	}
	if status != "" {
		b.WriteString("\n\n")
		b.WriteString(status)
	}
	return styles.Box.Render(b.String())
}

func summaryRows(snap stat.Summary, ok bool) []reportRow {
	if !ok {
		return []reportRow{{"count", "0"}, {"summary", "empty"}}
	}
	return []reportRow{
		{"count", strconv.FormatInt(int64(snap.Count()), 10)},
		{"sum", strconv.FormatInt(snap.Sum(), 10)},
		{"smallest", strconv.FormatInt(int64(snap.Smallest()), 10)},
		{"largest", strconv.FormatInt(int64(snap.Largest()), 10)},
		{"average", strconv.FormatFloat(snap.Average(), 'f', 6, 64)},
	}
}

func statusLine(err error, okText string) string {
	if err != nil {
		return styles.Error.Render("✗ " + err.Error())
	}
	return styles.Success.Render("✓ " + okText)
}

func contentionRows(c contention) []reportRow {
	return []reportRow{
		{"cas retries", strconv.FormatInt(c.Retries, 10)},
		{"overflows", strconv.FormatInt(c.Overflows, 10)},
	}
}

func renderStressReport(res stress.Result, c contention, err error) string {
	rows := summaryRows(res.Summary, !res.Empty)
	rows = append(rows,
		reportRow{"duration", res.Duration.String()},
		reportRow{"throughput", fmt.Sprintf("%.0f/s", res.Throughput())},
	)
	rows = append(rows, contentionRows(c)...)
	rows = append(rows, reportRow{"run id", res.RunID})
	return renderBox("statcell stress", rows, statusLine(err, "count, extremes and mean verified"))
}

func renderFeedReport(snap stat.Summary, ok bool, stats feedStats, c contention, err error) string {
	rows := summaryRows(snap, ok)
	rows = append(rows,
		reportRow{"lines", strconv.Itoa(stats.Lines)},
		reportRow{"skipped", strconv.Itoa(stats.Skipped)},
	)
	rows = append(rows, contentionRows(c)...)
	return renderBox("statcell feed", rows, statusLine(err, fmt.Sprintf("%d recorded", stats.Recorded)))
}
