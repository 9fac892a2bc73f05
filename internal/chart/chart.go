// Package chart renders the daily glucose image: target band, historic
// curve, scan points, per-interval extrema annotations and the placed
// note labels.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/fogleman/gg"

	"github.com/glucograph/glucograph/internal/extrema"
	"github.com/glucograph/glucograph/internal/placement"
	"github.com/glucograph/glucograph/internal/reading"
)

// Config holds the visual parameters for chart rendering.
type Config struct {
	Width         int
	Height        int
	PaddingLeft   float64
	PaddingRight  float64
	PaddingTop    float64
	PaddingBottom float64
	YMax          float64
	LineWidth     float64
	PointRadius   float64
	ScanRadius    float64
	Background    color.RGBA
	CurveLine     color.RGBA
	ScanPoint     color.RGBA
	BandFill      color.RGBA
	GridLine      color.RGBA
	TextColor     color.RGBA
	Connector     color.RGBA
}

// DefaultConfig returns the default chart configuration.
func DefaultConfig() *Config {
	return &Config{
		Width:         1700,
		Height:        800,
		PaddingLeft:   70,
		PaddingRight:  30,
		PaddingTop:    50,
		PaddingBottom: 45,
		YMax:          350,
		LineWidth:     2.0,
		PointRadius:   3.0,
		ScanRadius:    3.5,
		Background:    color.RGBA{255, 255, 255, 255}, // White
		CurveLine:     color.RGBA{31, 119, 180, 255},  // Blue
		ScanPoint:     color.RGBA{255, 165, 0, 255},   // Orange
		BandFill:      color.RGBA{128, 128, 128, 51},  // Translucent gray
		GridLine:      color.RGBA{128, 128, 128, 120}, // Gray
		TextColor:     color.RGBA{33, 37, 41, 255},    // Dark gray
		Connector:     color.RGBA{128, 128, 128, 180}, // Gray
	}
}

// ErrNoData means the day holds no glucose values, so there is no
// curve to draw.
var ErrNoData = errors.New("chart: no glucose values to draw")

// Renderer draws daily glucose charts.
type Renderer struct {
	config *Config
	fonts  *FontSet
}

// NewRenderer creates a renderer. A nil config selects the defaults;
// a nil font set selects the built-in bitmap face.
func NewRenderer(config *Config, fonts *FontSet) *Renderer {
	if config == nil {
		config = DefaultConfig()
	}
	if fonts == nil {
		fonts = ResolveFonts(13, nil)
	}
	return &Renderer{config: config, fonts: fonts}
}

// TextSpan adapts the renderer's font metrics to the note placement
// engine: it reports how much of the 24h axis a rendered text covers
// at this chart's plot width.
func (r *Renderer) TextSpan() placement.SpanFunc {
	plotWidth := float64(r.config.Width) - r.config.PaddingLeft - r.config.PaddingRight
	return func(text string) time.Duration {
		px := r.fonts.MeasureLabel(text)
		if px < 1 {
			px = 1
		}
		return time.Duration(px / plotWidth * float64(24 * time.Hour))
	}
}

// Render draws the full daily chart as a PNG. tick sets the vertical
// grid and x label spacing, normally the extrema bucket width.
func (r *Renderer) Render(store *reading.DayStore, markers []extrema.Marker, labels []placement.Label, target reading.TargetRange, tick time.Duration) ([]byte, error) {
	if store == nil || len(store.Values()) == 0 {
		return nil, ErrNoData
	}
	if tick <= 0 {
		tick = 2 * time.Hour
	}

	day := store.Day()

	dc := gg.NewContext(r.config.Width, r.config.Height)
	dc.SetColor(r.config.Background)
	dc.Clear()

	// Plot area inside the paddings.
	drawX := r.config.PaddingLeft
	drawY := r.config.PaddingTop
	drawWidth := float64(r.config.Width) - r.config.PaddingLeft - r.config.PaddingRight
	drawHeight := float64(r.config.Height) - r.config.PaddingTop - r.config.PaddingBottom

	r.drawTargetBand(dc, target, drawX, drawY, drawWidth, drawHeight)
	r.drawGrid(dc, day, tick, drawX, drawY, drawWidth, drawHeight)
	r.drawAxes(dc, day, target, tick, drawX, drawY, drawWidth, drawHeight)
	r.drawCurve(dc, store.Historic(), day, drawX, drawY, drawWidth, drawHeight)
	r.drawScans(dc, store.Scans(), day, drawX, drawY, drawWidth, drawHeight)
	r.drawMarkers(dc, markers, day, drawX, drawY, drawWidth, drawHeight)
	r.drawNotes(dc, labels, day, drawX, drawY, drawWidth, drawHeight)
	r.drawTitle(dc, day, drawX, drawY, drawWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// xFor maps a timestamp onto the plot area. The x axis always spans
// the full day from midnight to midnight.
func (r *Renderer) xFor(t, day time.Time, x, width float64) float64 {
	return x + (t.Sub(day).Seconds()/(24*time.Hour).Seconds())*width
}

// yFor maps a glucose value onto the plot area, clamping values beyond
// the axis range to the plot edge.
func (r *Renderer) yFor(v, y, height float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > r.config.YMax {
		v = r.config.YMax
	}
	return y + height - (v/r.config.YMax)*height
}

// drawTargetBand fills the in-range glucose band.
func (r *Renderer) drawTargetBand(dc *gg.Context, target reading.TargetRange, x, y, width, height float64) {
	top := r.yFor(target.High, y, height)
	bottom := r.yFor(target.Low, y, height)

	dc.SetColor(r.config.BandFill)
	dc.DrawRectangle(x, top, width, bottom-top)
	dc.Fill()
}

// drawGrid draws dashed vertical lines at each tick.
func (r *Renderer) drawGrid(dc *gg.Context, day time.Time, tick time.Duration, x, y, width, height float64) {
	dc.SetColor(r.config.GridLine)
	dc.SetLineWidth(0.5)
	dc.SetDash(4, 3)

	dayEnd := day.Add(24 * time.Hour)
	for t := day.Add(tick); t.Before(dayEnd); t = t.Add(tick) {
		xPos := r.xFor(t, day, x, width)
		dc.DrawLine(xPos, y, xPos, y+height)
		dc.Stroke()
	}

	dc.SetDash()
}

// drawAxes draws the plot frame, the glucose level labels on the left
// and the time labels along the bottom.
func (r *Renderer) drawAxes(dc *gg.Context, day time.Time, target reading.TargetRange, tick time.Duration, x, y, width, height float64) {
	dc.SetColor(r.config.TextColor)
	dc.SetLineWidth(1.0)
	dc.DrawLine(x, y, x, y+height)
	dc.Stroke()
	dc.DrawLine(x, y+height, x+width, y+height)
	dc.Stroke()

	dc.SetFontFace(r.fonts.Label)

	// Same level set the band uses, so the labels explain the shading.
	levels := []float64{0, target.Low, target.High, r.config.YMax}
	for _, level := range levels {
		yPos := r.yFor(level, y, height)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", level), x-8, yPos, 1, 0.35)
	}
	dc.DrawStringAnchored("mg/dL", x-8, y-18, 1, 0)

	dayEnd := day.Add(24 * time.Hour)
	for t := day; !t.After(dayEnd); t = t.Add(tick) {
		xPos := r.xFor(t, day, x, width)
		dc.DrawStringAnchored(t.Format("15:04"), xPos, y+height+8, 0.5, 1)
	}
}

// drawCurve draws the historic glucose polyline with a dot per sample.
func (r *Renderer) drawCurve(dc *gg.Context, historic []reading.Reading, day time.Time, x, y, width, height float64) {
	points := make([]reading.Reading, 0, len(historic))
	for _, h := range historic {
		if h.HasValue() {
			points = append(points, h)
		}
	}
	if len(points) == 0 {
		return
	}

	dc.SetColor(r.config.CurveLine)
	dc.SetLineWidth(r.config.LineWidth)
	for i := 0; i < len(points)-1; i++ {
		x1 := r.xFor(points[i].Time, day, x, width)
		y1 := r.yFor(points[i].Value, y, height)
		x2 := r.xFor(points[i+1].Time, day, x, width)
		y2 := r.yFor(points[i+1].Value, y, height)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	for _, p := range points {
		dc.DrawCircle(r.xFor(p.Time, day, x, width), r.yFor(p.Value, y, height), r.config.PointRadius)
		dc.Fill()
	}
}

// drawScans draws manual scan readings as standalone points.
func (r *Renderer) drawScans(dc *gg.Context, scans []reading.Reading, day time.Time, x, y, width, height float64) {
	dc.SetColor(r.config.ScanPoint)
	for _, s := range scans {
		if !s.HasValue() {
			continue
		}
		dc.DrawCircle(r.xFor(s.Time, day, x, width), r.yFor(s.Value, y, height), r.config.ScanRadius)
		dc.Fill()
	}
}

// pointKey identifies a data point for annotation de-duplication.
type pointKey struct {
	when  int64
	value float64
}

// drawMarkers annotates the per-interval extremes with their values,
// max above the point and min below. A point that is both the min and
// the max of its interval is annotated once, as a max.
func (r *Renderer) drawMarkers(dc *gg.Context, markers []extrema.Marker, day time.Time, x, y, width, height float64) {
	dc.SetColor(r.config.TextColor)
	dc.SetFontFace(r.fonts.Label)

	annotated := make(map[pointKey]bool)

	for _, m := range markers {
		if m.Kind != extrema.Max {
			continue
		}
		key := pointKey{when: m.Reading.Time.UnixNano(), value: m.Reading.Value}
		if annotated[key] {
			continue
		}
		annotated[key] = true

		px := r.xFor(m.Reading.Time, day, x, width)
		py := r.yFor(m.Reading.Value, y, height)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", m.Reading.Value), px, py-10, 0.5, 0)
	}

	for _, m := range markers {
		if m.Kind != extrema.Min {
			continue
		}
		key := pointKey{when: m.Reading.Time.UnixNano(), value: m.Reading.Value}
		if annotated[key] {
			continue
		}
		annotated[key] = true

		px := r.xFor(m.Reading.Time, day, x, width)
		py := r.yFor(m.Reading.Value, y, height)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", m.Reading.Value), px, py+10, 0.5, 1)
	}
}

// drawNotes draws the placed note labels with a connector line from
// each label back to its anchor point on the curve.
func (r *Renderer) drawNotes(dc *gg.Context, labels []placement.Label, day time.Time, x, y, width, height float64) {
	dc.SetFontFace(r.fonts.Label)

	for _, label := range labels {
		px := r.xFor(label.X, day, x, width)
		anchorY := r.yFor(label.AnchorValue, y, height)

		labelValue := label.AnchorValue + label.Offset
		if label.Side == placement.Below {
			labelValue = label.AnchorValue - label.Offset
		}
		labelY := r.yFor(labelValue, y, height)

		dc.SetColor(r.config.Connector)
		dc.SetLineWidth(1.0)
		if label.Side == placement.Above {
			dc.DrawLine(px, anchorY-3, px, labelY+3)
		} else {
			dc.DrawLine(px, anchorY+3, px, labelY-3)
		}
		dc.Stroke()

		dc.SetColor(r.config.TextColor)
		if label.Side == placement.Above {
			dc.DrawStringAnchored(label.Text, px, labelY, 0.5, 0)
		} else {
			dc.DrawStringAnchored(label.Text, px, labelY, 0.5, 1)
		}
	}
}

// drawTitle writes the chart heading above the plot.
func (r *Renderer) drawTitle(dc *gg.Context, day time.Time, x, y, width float64) {
	dc.SetColor(r.config.TextColor)
	dc.SetFontFace(r.fonts.Title)
	dc.DrawStringAnchored("Daily glucose "+day.Format("2006-01-02"), x+width/2, y-14, 0.5, 0)
}
