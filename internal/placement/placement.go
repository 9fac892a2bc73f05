// Package placement assigns each free-text device note a label position
// near its anchor reading. Labels pick a side of the curve based on the
// target band and stack outward when their horizontal spans collide, so
// no two labels on the same side overlap.
package placement

import (
	"errors"
	"fmt"
	"time"

	"github.com/glucograph/glucograph/internal/reading"
)

// Side is the vertical side of the anchor a label is drawn on.
type Side int

const (
	// Above places the label over the anchor point.
	Above Side = iota
	// Below places the label under the anchor point.
	Below
)

// String returns "above" or "below".
func (s Side) String() string {
	if s == Above {
		return "above"
	}
	return "below"
}

// Label is a positioned note annotation. Anchor and Text are immutable
// inputs; Side and Offset are decided here. X always equals the anchor
// timestamp. AnchorValue is the glucose value the label hangs off,
// either the reading's own value or the curve value at its time.
// Offset is the vertical distance from the anchor in chart-value units
// (mg/dL), measured outward on the label's side.
type Label struct {
	Anchor      reading.Reading
	Text        string
	Side        Side
	Offset      float64
	X           time.Time
	AnchorValue float64
}

// SpanFunc reports the horizontal span a rendered text occupies on the
// time axis. The collision test treats two labels as overlapping when
// their anchors are closer than the mean of their spans.
type SpanFunc func(text string) time.Duration

// DefaultRuneSpan is the per-rune time-axis width used by the fallback
// span estimate. It corresponds to a ~13px glyph on a full-day chart of
// the default dimensions.
const DefaultRuneSpan = 7 * time.Minute

// RuneSpan returns a SpanFunc that estimates text width from its rune
// count, perRune time-axis width per rune. Used when no font face is
// available to measure real glyph widths.
func RuneSpan(perRune time.Duration) SpanFunc {
	return func(text string) time.Duration {
		n := len([]rune(text))
		if n < 1 {
			n = 1
		}
		return time.Duration(n) * perRune
	}
}

// Config holds the adjustable placement parameters. All distances are
// in chart-value units.
type Config struct {
	// Target is the in-range band whose midpoint decides the label
	// side.
	Target reading.TargetRange
	// MinClearance is the base vertical distance between a label and
	// its anchor, roughly one line height.
	MinClearance float64
	// StackStep is the distance added between overlapping same-side
	// labels to separate them.
	StackStep float64
	// ToleranceFactor scales the horizontal overlap window. 1.0 means
	// labels collide exactly when their estimated texts would touch.
	ToleranceFactor float64
	// TextSpan measures rendered text on the time axis. Nil selects
	// RuneSpan(DefaultRuneSpan).
	TextSpan SpanFunc
}

// DefaultConfig returns placement parameters tuned for the default
// chart dimensions.
func DefaultConfig() Config {
	return Config{
		Target:          reading.TargetRange{Low: 70, High: 180},
		MinClearance:    12,
		StackStep:       18,
		ToleranceFactor: 1.0,
	}
}

// ErrInvalidConfig indicates an unusable placement setting: a
// non-positive distance or an inverted target range.
var ErrInvalidConfig = errors.New("placement: invalid configuration")

// Engine places note labels for one render pass. It keeps no state
// between Place calls.
type Engine struct {
	cfg Config
}

// New validates the configuration and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.MinClearance <= 0 || cfg.StackStep <= 0 || cfg.ToleranceFactor <= 0 {
		return nil, fmt.Errorf("%w: clearance=%v step=%v tolerance=%v",
			ErrInvalidConfig, cfg.MinClearance, cfg.StackStep, cfg.ToleranceFactor)
	}
	if !cfg.Target.Valid() {
		return nil, fmt.Errorf("%w: target range %g..%g must satisfy 0 < low < high",
			ErrInvalidConfig, cfg.Target.Low, cfg.Target.High)
	}
	if cfg.TextSpan == nil {
		cfg.TextSpan = RuneSpan(DefaultRuneSpan)
	}
	return &Engine{cfg: cfg}, nil
}

// Place assigns a side and vertical offset to every noted reading, in
// input order. Readings without usable note text produce no label.
// curveValueAt supplies the anchor value for note entries that carry no
// glucose value of their own. The pass is greedy and single-sweep:
// each label only ever stacks outward past earlier labels, never moves
// one already placed, so calling Place twice on the same input yields
// identical output.
//
// Stacking resolves collisions within one side only. A tall stack can
// still reach across the curve into the other side's band; that is an
// accepted limit of the greedy pass.
func (e *Engine) Place(noted []reading.Reading, curveValueAt func(time.Time) float64) []Label {
	labels := make([]Label, 0, len(noted))
	mid := e.cfg.Target.Midpoint()

	for _, r := range noted {
		if !r.HasNote() {
			continue
		}

		anchorValue := r.Value
		if !r.HasValue() {
			anchorValue = curveValueAt(r.Time)
		}

		side := Below
		if anchorValue <= mid {
			side = Above
		}

		label := Label{
			Anchor:      r,
			Text:        r.Note,
			Side:        side,
			Offset:      e.cfg.MinClearance,
			X:           r.Time,
			AnchorValue: anchorValue,
		}

		// Stack one step past the farthest same-side label whose
		// horizontal span overlaps ours.
		span := e.cfg.TextSpan(label.Text)
		maxOffset := 0.0
		for _, placed := range labels {
			if placed.Side != side {
				continue
			}
			if !e.overlaps(placed, label, span) {
				continue
			}
			if placed.Offset > maxOffset {
				maxOffset = placed.Offset
			}
		}
		if maxOffset > 0 {
			label.Offset = maxOffset + e.cfg.StackStep
		}

		labels = append(labels, label)
	}

	return labels
}

// overlaps reports whether the horizontal spans of a placed label and
// the candidate collide. Equal anchor timestamps always collide since
// spans are never zero.
func (e *Engine) overlaps(placed, candidate Label, candidateSpan time.Duration) bool {
	gap := candidate.X.Sub(placed.X)
	if gap < 0 {
		gap = -gap
	}
	window := time.Duration(float64(e.cfg.TextSpan(placed.Text)+candidateSpan) / 2 * e.cfg.ToleranceFactor)
	return gap < window
}
