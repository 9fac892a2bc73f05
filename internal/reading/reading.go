// Package reading holds the glucose reading data model shared by the
// bucketing, placement and rendering packages, plus the day store that
// owns one day's readings for the duration of a render pass.
package reading

import (
	"strings"
	"time"
)

// Kind identifies how a reading was recorded by the device.
type Kind int

const (
	// Historic readings are the automatic sensor samples that form the
	// continuous glucose curve.
	Historic Kind = iota
	// Scan readings are manual sensor scans, drawn as separate points.
	Scan
	// Note entries carry free text and no glucose value of their own.
	Note
)

// String returns the lowercase name of the reading kind.
func (k Kind) String() string {
	switch k {
	case Historic:
		return "historic"
	case Scan:
		return "scan"
	case Note:
		return "note"
	}
	return "unknown"
}

// Reading is a single validated device record: a glucose sample or a
// free-text note anchored to a point in time. Value is in mg/dL; a zero
// Value on a Historic or Scan reading marks a sensor gap with no
// measurement. Note entries have a zero Value and carry their text in
// Note.
type Reading struct {
	Time  time.Time
	Value float64
	Note  string
	Kind  Kind
}

// HasValue reports whether the reading carries a glucose measurement.
func (r Reading) HasValue() bool {
	return r.Kind != Note && r.Value > 0
}

// HasNote reports whether the reading carries usable note text.
// Whitespace-only text counts as no note.
func (r Reading) HasNote() bool {
	return strings.TrimSpace(r.Note) != ""
}

// TargetRange is the clinically normal glucose band shaded on the chart.
type TargetRange struct {
	Low  float64
	High float64
}

// Midpoint returns the center of the target band, used by the placement
// engine to pick a label side.
func (t TargetRange) Midpoint() float64 {
	return (t.Low + t.High) / 2
}

// Valid reports whether the range is usable: both bounds positive and
// Low strictly below High.
func (t TargetRange) Valid() bool {
	return t.Low > 0 && t.Low < t.High
}
