// Package summary computes the day-level statistics shown by the
// summary command: counts, extremes and time in range.
package summary

import (
	"fmt"
	"time"

	"github.com/glucograph/glucograph/internal/reading"
)

// Summary describes one calendar day of readings.
type Summary struct {
	Day      time.Time
	Historic int
	Scans    int
	Notes    int

	Min   float64
	MinAt time.Time
	Max   float64
	MaxAt time.Time
	Mean  float64

	InRangePct float64
	BelowPct   float64
	AbovePct   float64
}

// HasValues reports whether any glucose values backed the statistics.
// A day of only note rows yields counts but no extremes.
func (s Summary) HasValues() bool {
	return s.Max > 0
}

// Compute derives the day summary from a store. An empty store yields
// a zero summary for the day rather than an error.
func Compute(store *reading.DayStore, target reading.TargetRange) Summary {
	s := Summary{
		Day:      store.Day(),
		Historic: len(store.Historic()),
		Scans:    len(store.Scans()),
		Notes:    len(store.Noted()),
	}

	values := store.Values()
	if len(values) == 0 {
		return s
	}

	var sum float64
	var below, inRange, above int
	s.Min = values[0].Value
	s.MinAt = values[0].Time
	s.Max = values[0].Value
	s.MaxAt = values[0].Time

	for _, r := range values {
		sum += r.Value

		if r.Value < s.Min {
			s.Min = r.Value
			s.MinAt = r.Time
		}
		if r.Value > s.Max {
			s.Max = r.Value
			s.MaxAt = r.Time
		}

		switch {
		case r.Value < target.Low:
			below++
		case r.Value > target.High:
			above++
		default:
			inRange++
		}
	}

	n := float64(len(values))
	s.Mean = sum / n
	s.BelowPct = float64(below) / n * 100
	s.InRangePct = float64(inRange) / n * 100
	s.AbovePct = float64(above) / n * 100

	return s
}

// Format renders the summary as the text report printed by the CLI.
func Format(s Summary, target reading.TargetRange) string {
	content := fmt.Sprintf("Glucose summary for %s\n\n", s.Day.Format("2006-01-02"))
	content += fmt.Sprintf("  readings:  %d historic, %d scans, %d notes\n",
		s.Historic, s.Scans, s.Notes)

	if !s.HasValues() {
		content += "  no glucose values recorded\n"
		return content
	}

	content += fmt.Sprintf("  lowest:    %.0f mg/dL at %s\n", s.Min, s.MinAt.Format("15:04"))
	content += fmt.Sprintf("  highest:   %.0f mg/dL at %s\n", s.Max, s.MaxAt.Format("15:04"))
	content += fmt.Sprintf("  mean:      %.1f mg/dL\n", s.Mean)
	content += fmt.Sprintf("  in range (%.0f-%.0f): %.1f%%, below: %.1f%%, above: %.1f%%\n",
		target.Low, target.High, s.InRangePct, s.BelowPct, s.AbovePct)

	return content
}
