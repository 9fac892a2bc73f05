// Package extrema buckets one day's readings into fixed-width time
// intervals and selects the minimum and maximum reading of each bucket.
package extrema

import (
	"errors"
	"time"

	"github.com/glucograph/glucograph/internal/reading"
)

// ErrInvalidWidth indicates a non-positive bucket width.
var ErrInvalidWidth = errors.New("extrema: bucket width must be positive")

// MarkerKind distinguishes the two extremum markers of a bucket.
type MarkerKind int

const (
	// Min marks the lowest reading in a bucket.
	Min MarkerKind = iota
	// Max marks the highest reading in a bucket.
	Max
)

// String returns "min" or "max".
func (k MarkerKind) String() string {
	if k == Min {
		return "min"
	}
	return "max"
}

// Marker is an extremum of one interval bucket, consumed by the
// renderer within the same render pass.
type Marker struct {
	Reading     reading.Reading
	Kind        MarkerKind
	BucketStart time.Time
	BucketEnd   time.Time
}

// SamePoint reports whether two markers reference the same data point.
// The renderer uses this to annotate a shared min/max only once.
func (m Marker) SamePoint(o Marker) bool {
	return m.Reading.Time.Equal(o.Reading.Time) && m.Reading.Value == o.Reading.Value
}

// Compute partitions the calendar day of the given readings into
// consecutive buckets of width starting at 00:00 and returns one Min
// and one Max marker per non-empty bucket, in bucket order with Min
// before Max. The last bucket is shortened to the day boundary when
// width does not divide 24h evenly. Only value-bearing readings
// participate; an empty input yields an empty, non-nil result.
//
// Readings must already be sorted ascending by timestamp; ties on equal
// values resolve to the earliest reading, so the output is fully
// deterministic.
func Compute(readings []reading.Reading, width time.Duration) ([]Marker, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}

	markers := []Marker{}
	var values []reading.Reading
	for _, r := range readings {
		if r.HasValue() {
			values = append(values, r)
		}
	}
	if len(values) == 0 {
		return markers, nil
	}

	first := values[0].Time
	dayStart := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, first.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	next := 0
	for start := dayStart; start.Before(dayEnd); start = start.Add(width) {
		end := start.Add(width)
		if end.After(dayEnd) {
			end = dayEnd
		}

		// Readings are sorted, so each bucket is a contiguous run.
		lo := next
		for next < len(values) && values[next].Time.Before(end) {
			next++
		}
		if lo == next {
			continue
		}

		bucket := values[lo:next]
		min, max := bucket[0], bucket[0]
		for _, r := range bucket[1:] {
			if r.Value < min.Value {
				min = r
			}
			if r.Value > max.Value {
				max = r
			}
		}

		markers = append(markers,
			Marker{Reading: min, Kind: Min, BucketStart: start, BucketEnd: end},
			Marker{Reading: max, Kind: Max, BucketStart: start, BucketEnd: end},
		)
	}

	return markers, nil
}
