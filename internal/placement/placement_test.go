package placement

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/glucograph/glucograph/internal/reading"
)

var testDay = time.Date(2025, 10, 27, 0, 0, 0, 0, time.Local)

var testTarget = reading.TargetRange{Low: 70, High: 180}

func at(hour, min int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func note(hour, min int, text string) reading.Reading {
	return reading.Reading{Time: at(hour, min), Note: text, Kind: reading.Note}
}

// fixedSpan makes every label 30 minutes wide on the time axis, so two
// labels overlap exactly when their anchors are under 30 minutes apart.
func fixedSpan(string) time.Duration { return 30 * time.Minute }

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{
		Target:          testTarget,
		MinClearance:    10,
		StackStep:       20,
		ToleranceFactor: 1.0,
		TextSpan:        fixedSpan,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func flatCurve(v float64) func(time.Time) float64 {
	return func(time.Time) float64 { return v }
}

func TestNewValidatesConfig(t *testing.T) {
	bad := []Config{
		{Target: testTarget, MinClearance: 0, StackStep: 20, ToleranceFactor: 1},
		{Target: testTarget, MinClearance: 10, StackStep: 0, ToleranceFactor: 1},
		{Target: testTarget, MinClearance: 10, StackStep: 20, ToleranceFactor: 0},
		{Target: testTarget, MinClearance: -1, StackStep: 20, ToleranceFactor: 1},
		{Target: reading.TargetRange{Low: 180, High: 70}, MinClearance: 10, StackStep: 20, ToleranceFactor: 1},
		{Target: reading.TargetRange{Low: 100, High: 100}, MinClearance: 10, StackStep: 20, ToleranceFactor: 1},
		{MinClearance: 10, StackStep: 20, ToleranceFactor: 1},
	}
	for _, cfg := range bad {
		if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("New(%+v): err = %v, want ErrInvalidConfig", cfg, err)
		}
	}

	// Nil TextSpan selects the rune-count estimate.
	e, err := New(Config{Target: testTarget, MinClearance: 10, StackStep: 20, ToleranceFactor: 1})
	if err != nil {
		t.Fatalf("New with nil TextSpan: %v", err)
	}
	labels := e.Place([]reading.Reading{note(9, 0, "walk")}, flatCurve(100))
	if len(labels) != 1 {
		t.Fatalf("got %d labels, want 1", len(labels))
	}
}

func TestPlaceSideRule(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name  string
		value float64
		want  Side
	}{
		{name: "well below midpoint", value: 80, want: Above},
		{name: "exactly at midpoint", value: 125, want: Above},
		{name: "just above midpoint", value: 126, want: Below},
		{name: "high value", value: 240, want: Below},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := e.Place([]reading.Reading{note(9, 0, "x")}, flatCurve(tt.value))
			if len(labels) != 1 {
				t.Fatalf("got %d labels, want 1", len(labels))
			}
			if labels[0].Side != tt.want {
				t.Errorf("anchor value %g placed %v, want %v", tt.value, labels[0].Side, tt.want)
			}
		})
	}
}

func TestPlaceUsesOwnValueWhenPresent(t *testing.T) {
	e := testEngine(t)

	// A value-bearing reading with note text anchors to its own value,
	// not to the curve.
	noted := []reading.Reading{
		{Time: at(9, 0), Value: 200, Note: "after meal", Kind: reading.Scan},
	}
	labels := e.Place(noted, flatCurve(80))

	if len(labels) != 1 {
		t.Fatalf("got %d labels, want 1", len(labels))
	}
	if labels[0].AnchorValue != 200 {
		t.Errorf("AnchorValue = %g, want own value 200", labels[0].AnchorValue)
	}
	if labels[0].Side != Below {
		t.Errorf("Side = %v, want Below for value 200", labels[0].Side)
	}
}

func TestPlaceAnchorsValuelessNotesToCurve(t *testing.T) {
	e := testEngine(t)

	labels := e.Place([]reading.Reading{note(9, 0, "insulin")}, flatCurve(150))

	if len(labels) != 1 {
		t.Fatalf("got %d labels, want 1", len(labels))
	}
	if labels[0].AnchorValue != 150 {
		t.Errorf("AnchorValue = %g, want curve value 150", labels[0].AnchorValue)
	}
	if !labels[0].X.Equal(at(9, 0)) {
		t.Errorf("X = %v, want anchor timestamp", labels[0].X)
	}
}

func TestPlaceSameTimestampStacksOneStep(t *testing.T) {
	e := testEngine(t)

	noted := []reading.Reading{
		note(9, 0, "first"),
		note(9, 0, "second"),
	}
	labels := e.Place(noted, flatCurve(100))

	if len(labels) != 2 {
		t.Fatalf("got %d labels, want 2", len(labels))
	}
	if labels[0].Side != labels[1].Side {
		t.Fatalf("same anchor produced different sides: %v vs %v", labels[0].Side, labels[1].Side)
	}
	if labels[0].Offset != 10 {
		t.Errorf("first offset = %g, want base clearance 10", labels[0].Offset)
	}
	if labels[1].Offset != 30 {
		t.Errorf("second offset = %g, want 30 (one step past the first)", labels[1].Offset)
	}
}

func TestPlaceFarApartLabelsKeepBaseOffset(t *testing.T) {
	e := testEngine(t)

	noted := []reading.Reading{
		note(8, 0, "breakfast"),
		note(14, 0, "lunch"),
	}
	labels := e.Place(noted, flatCurve(100))

	for i, l := range labels {
		if l.Offset != 10 {
			t.Errorf("label %d offset = %g, want base clearance 10", i, l.Offset)
		}
	}
}

func TestPlaceStacksPastFarthestOverlap(t *testing.T) {
	e := testEngine(t)

	// All three within the 30 minute overlap window of each other.
	noted := []reading.Reading{
		note(9, 0, "a"),
		note(9, 5, "b"),
		note(9, 10, "c"),
	}
	labels := e.Place(noted, flatCurve(100))

	wantOffsets := []float64{10, 30, 50}
	for i, want := range wantOffsets {
		if labels[i].Offset != want {
			t.Errorf("label %d offset = %g, want %g", i, labels[i].Offset, want)
		}
	}
}

func TestPlaceSidesDoNotInteract(t *testing.T) {
	e := testEngine(t)

	// Close in time but on opposite sides of the band midpoint.
	noted := []reading.Reading{
		{Time: at(9, 0), Value: 80, Note: "low", Kind: reading.Scan},
		{Time: at(9, 1), Value: 240, Note: "high", Kind: reading.Scan},
	}
	labels := e.Place(noted, flatCurve(0))

	if labels[0].Side != Above || labels[1].Side != Below {
		t.Fatalf("sides = %v, %v, want Above, Below", labels[0].Side, labels[1].Side)
	}
	if labels[0].Offset != 10 || labels[1].Offset != 10 {
		t.Errorf("offsets = %g, %g, want both at base clearance", labels[0].Offset, labels[1].Offset)
	}
}

func TestPlaceSkipsEmptyNotes(t *testing.T) {
	e := testEngine(t)

	noted := []reading.Reading{
		note(9, 0, ""),
		note(10, 0, "   \t"),
		note(11, 0, "kept"),
	}
	labels := e.Place(noted, flatCurve(100))

	if len(labels) != 1 {
		t.Fatalf("got %d labels, want 1", len(labels))
	}
	if labels[0].Text != "kept" {
		t.Errorf("Text = %q, want %q", labels[0].Text, "kept")
	}
}

func TestPlacePreservesInputOrder(t *testing.T) {
	e := testEngine(t)

	noted := []reading.Reading{
		note(9, 0, "one"),
		note(9, 2, "two"),
		note(9, 4, "three"),
	}
	labels := e.Place(noted, flatCurve(100))

	want := []string{"one", "two", "three"}
	for i, w := range want {
		if labels[i].Text != w {
			t.Errorf("labels[%d].Text = %q, want %q", i, labels[i].Text, w)
		}
	}
}

func TestPlaceIsIdempotent(t *testing.T) {
	e := testEngine(t)

	noted := []reading.Reading{
		note(9, 0, "a"),
		note(9, 5, "b"),
		note(12, 0, "c"),
	}

	first := e.Place(noted, flatCurve(100))
	second := e.Place(noted, flatCurve(100))

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated Place diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestRuneSpan(t *testing.T) {
	span := RuneSpan(7 * time.Minute)

	if got := span("abc"); got != 21*time.Minute {
		t.Errorf("span(abc) = %v, want 21m", got)
	}
	// Multi-byte runes count as single glyphs.
	if got := span("早餐"); got != 14*time.Minute {
		t.Errorf("span of two CJK runes = %v, want 14m", got)
	}
	if got := span(""); got != 7*time.Minute {
		t.Errorf("span of empty text = %v, want minimum one rune", got)
	}
}

func TestSideString(t *testing.T) {
	if Above.String() != "above" || Below.String() != "below" {
		t.Errorf("Side strings = %q, %q", Above.String(), Below.String())
	}
}
