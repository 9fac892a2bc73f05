package reading

import (
	"sort"
	"time"
)

// DayStore owns one calendar day's readings for a single render pass.
// Readings are sorted ascending by timestamp and deduplicated at
// construction; the store is read-only afterwards. Each render pass
// builds its own store, so nothing is shared across renders.
type DayStore struct {
	day      time.Time // midnight at the start of the day
	readings []Reading
	curve    []Reading // value-bearing readings only, for interpolation
}

// NewDayStore builds a store for the day containing date. Readings
// outside that calendar day are dropped, the rest are sorted by
// timestamp and exact duplicates removed.
func NewDayStore(date time.Time, readings []Reading) *DayStore {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	next := day.AddDate(0, 0, 1)

	kept := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if r.Time.Before(day) || !r.Time.Before(next) {
			continue
		}
		kept = append(kept, r)
	}

	// Ties sort by kind, value and note so exact duplicates end up
	// adjacent for the removal pass below.
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Value != b.Value {
			return a.Value < b.Value
		}
		return a.Note < b.Note
	})

	deduped := kept[:0]
	var prev Reading
	for i, r := range kept {
		if i > 0 && r == prev {
			continue
		}
		deduped = append(deduped, r)
		prev = r
	}

	curve := make([]Reading, 0, len(deduped))
	for _, r := range deduped {
		if r.HasValue() {
			curve = append(curve, r)
		}
	}

	return &DayStore{day: day, readings: deduped, curve: curve}
}

// Day returns midnight at the start of the store's calendar day.
func (s *DayStore) Day() time.Time {
	return s.day
}

// Len returns the number of readings of all kinds.
func (s *DayStore) Len() int {
	return len(s.readings)
}

// Readings returns all readings in timestamp order. Callers must treat
// the slice as read-only.
func (s *DayStore) Readings() []Reading {
	return s.readings
}

// Values returns the value-bearing readings (historic and scan) in
// timestamp order.
func (s *DayStore) Values() []Reading {
	return s.curve
}

// Historic returns the automatic sensor samples that form the curve.
func (s *DayStore) Historic() []Reading {
	return s.ofKind(Historic)
}

// Scans returns the manual scan readings.
func (s *DayStore) Scans() []Reading {
	return s.ofKind(Scan)
}

// Noted returns every reading with usable note text, in timestamp
// order, regardless of kind.
func (s *DayStore) Noted() []Reading {
	var noted []Reading
	for _, r := range s.readings {
		if r.HasNote() {
			noted = append(noted, r)
		}
	}
	return noted
}

func (s *DayStore) ofKind(k Kind) []Reading {
	var out []Reading
	for _, r := range s.readings {
		if r.Kind == k {
			out = append(out, r)
		}
	}
	return out
}

// CurveValueAt returns the glucose value of the day's curve at t,
// interpolating linearly between the bracketing value-bearing readings.
// Outside the data's time range the value is clamped to the nearest
// endpoint reading. With no value-bearing readings it returns 0.
func (s *DayStore) CurveValueAt(t time.Time) float64 {
	if len(s.curve) == 0 {
		return 0
	}
	if !t.After(s.curve[0].Time) {
		return s.curve[0].Value
	}
	last := s.curve[len(s.curve)-1]
	if !t.Before(last.Time) {
		return last.Value
	}

	// Binary search for the first reading at or after t.
	i := sort.Search(len(s.curve), func(i int) bool {
		return !s.curve[i].Time.Before(t)
	})
	right := s.curve[i]
	if right.Time.Equal(t) {
		return right.Value
	}
	left := s.curve[i-1]

	span := right.Time.Sub(left.Time).Seconds()
	if span <= 0 {
		return left.Value
	}
	frac := t.Sub(left.Time).Seconds() / span
	return left.Value + frac*(right.Value-left.Value)
}
