// Package render wires one pass over a day of readings: build the day
// store, find the per-interval extremes, place the note labels and draw
// the chart.
package render

import (
	"fmt"
	"log"
	"time"

	"github.com/glucograph/glucograph/internal/chart"
	"github.com/glucograph/glucograph/internal/config"
	"github.com/glucograph/glucograph/internal/extrema"
	"github.com/glucograph/glucograph/internal/libreview"
	"github.com/glucograph/glucograph/internal/placement"
	"github.com/glucograph/glucograph/internal/reading"
	"github.com/glucograph/glucograph/internal/summary"
)

// Pipeline holds the configured collaborators for rendering daily
// charts. Build it once and reuse it across days.
type Pipeline struct {
	cfg      *config.Config
	target   reading.TargetRange
	renderer *chart.Renderer
	engine   *placement.Engine
}

// New builds a pipeline from the loaded configuration. The font set is
// resolved here, once, and shared by the renderer and the placement
// engine's text measurement.
func New(cfg *config.Config) (*Pipeline, error) {
	fonts := chart.ResolveFonts(cfg.Font.Size, cfg.Font.Paths)
	if fonts.Path == "" {
		log.Println("No configured font found, using built-in bitmap face")
	} else {
		log.Printf("Using font %s", fonts.Path)
	}

	renderer := chart.NewRenderer(chartConfig(cfg), fonts)

	target := reading.TargetRange{Low: cfg.Target.Low, High: cfg.Target.High}
	engine, err := placement.New(placement.Config{
		Target:          target,
		MinClearance:    cfg.Notes.Clearance,
		StackStep:       cfg.Notes.StackStep,
		ToleranceFactor: cfg.Notes.ToleranceFactor,
		TextSpan:        renderer.TextSpan(),
	})
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:      cfg,
		target:   target,
		renderer: renderer,
		engine:   engine,
	}, nil
}

// chartConfig overlays the configured geometry on the chart defaults.
func chartConfig(cfg *config.Config) *chart.Config {
	cc := chart.DefaultConfig()
	cc.Width = cfg.Chart.Width
	cc.Height = cfg.Chart.Height
	cc.YMax = cfg.Chart.YMax
	return cc
}

// Result carries everything one render pass produced. Markers and
// Labels are exposed for callers that want to inspect or log the
// annotation layout next to the image.
type Result struct {
	Store   *reading.DayStore
	Markers []extrema.Marker
	Labels  []placement.Label
	PNG     []byte
}

// RenderDay renders the chart for one calendar day of the export.
func (p *Pipeline) RenderDay(file *libreview.File, day time.Time) (*Result, error) {
	store := reading.NewDayStore(day, file.Readings)
	log.Printf("Day %s: %d readings, %d with values, %d notes",
		day.Format("2006-01-02"), store.Len(), len(store.Values()), len(store.Noted()))

	markers, err := extrema.Compute(store.Values(), p.cfg.BucketWidth())
	if err != nil {
		return nil, fmt.Errorf("bucketing extremes: %w", err)
	}

	labels := p.engine.Place(store.Noted(), store.CurveValueAt)

	png, err := p.renderer.Render(store, markers, labels, p.target, p.cfg.BucketWidth())
	if err != nil {
		return nil, err
	}
	log.Printf("Rendered %d extreme markers and %d note labels", len(markers), len(labels))

	return &Result{
		Store:   store,
		Markers: markers,
		Labels:  labels,
		PNG:     png,
	}, nil
}

// Summarize computes the day statistics without rendering.
func (p *Pipeline) Summarize(file *libreview.File, day time.Time) summary.Summary {
	store := reading.NewDayStore(day, file.Readings)
	return summary.Compute(store, p.target)
}

// Target returns the configured in-range band.
func (p *Pipeline) Target() reading.TargetRange {
	return p.target
}
