// Package config loads the chart and annotation settings from an
// optional YAML file. Every knob has a default, so the tool runs with
// no config file at all; a present file only overrides what it names.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no --config flag is given.
const DefaultPath = "glucograph.yaml"

type Config struct {
	Chart  ChartConfig  `yaml:"chart"`
	Bucket BucketConfig `yaml:"bucket"`
	Target TargetConfig `yaml:"target"`
	Notes  NotesConfig  `yaml:"notes"`
	Font   FontConfig   `yaml:"font"`
}

// ChartConfig sets the output image geometry and the value axis top.
type ChartConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	YMax   float64 `yaml:"y_max"`
}

// BucketConfig sets the extrema bucketing interval.
type BucketConfig struct {
	WidthMinutes int `yaml:"width_minutes"`
}

// TargetConfig is the in-range glucose band in mg/dL.
type TargetConfig struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// NotesConfig sets the note label placement distances, in mg/dL of
// chart height.
type NotesConfig struct {
	Clearance       float64 `yaml:"clearance"`
	StackStep       float64 `yaml:"stack_step"`
	ToleranceFactor float64 `yaml:"tolerance_factor"`
}

// FontConfig selects the label font. Paths are tried in order; when
// none loads the renderer falls back to its built-in face.
type FontConfig struct {
	Size  float64  `yaml:"size"`
	Paths []string `yaml:"paths"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Chart: ChartConfig{
			Width:  1700,
			Height: 800,
			YMax:   350,
		},
		Bucket: BucketConfig{
			WidthMinutes: 120,
		},
		Target: TargetConfig{
			Low:  70,
			High: 180,
		},
		Notes: NotesConfig{
			Clearance:       12,
			StackStep:       18,
			ToleranceFactor: 1.0,
		},
		Font: FontConfig{
			Size:  13,
			Paths: defaultFontPaths(),
		},
	}
}

// defaultFontPaths lists font files tried in order. CJK faces come
// first so device notes written in Chinese or Japanese render.
func defaultFontPaths() []string {
	return []string{
		"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
		"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
		"/usr/share/fonts/truetype/arphic/uming.ttc",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
		"/System/Library/Fonts/PingFang.ttc",
		"/System/Library/Fonts/Helvetica.ttc",
		"C:/Windows/Fonts/msyh.ttc",
		"C:/Windows/Fonts/arial.ttf",
	}
}

// ErrInvalid marks a configuration value the renderer cannot work with.
var ErrInvalid = errors.New("config: invalid value")

// Load reads the YAML file at path. An empty path means DefaultPath,
// and a missing file at the default location is not an error: the
// built-in defaults apply. Fields the file leaves out keep their
// defaults; fields it sets to unusable values fail validation.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills fields the file left at zero.
func (c *Config) applyDefaults() {
	def := Default()

	if c.Chart.Width == 0 {
		c.Chart.Width = def.Chart.Width
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = def.Chart.Height
	}
	if c.Chart.YMax == 0 {
		c.Chart.YMax = def.Chart.YMax
	}
	if c.Bucket.WidthMinutes == 0 {
		c.Bucket.WidthMinutes = def.Bucket.WidthMinutes
	}
	if c.Target.Low == 0 {
		c.Target.Low = def.Target.Low
	}
	if c.Target.High == 0 {
		c.Target.High = def.Target.High
	}
	if c.Notes.Clearance == 0 {
		c.Notes.Clearance = def.Notes.Clearance
	}
	if c.Notes.StackStep == 0 {
		c.Notes.StackStep = def.Notes.StackStep
	}
	if c.Notes.ToleranceFactor == 0 {
		c.Notes.ToleranceFactor = def.Notes.ToleranceFactor
	}
	if c.Font.Size == 0 {
		c.Font.Size = def.Font.Size
	}
	if len(c.Font.Paths) == 0 {
		c.Font.Paths = def.Font.Paths
	}
}

// The renderer reserves fixed pixel margins for the axes and titles, so
// dimensions below these floors leave no plot area to draw on.
const (
	minChartWidth  = 200
	minChartHeight = 200
)

// Validate rejects values that would make the render pass misbehave
// rather than merely look odd.
func (c *Config) Validate() error {
	if c.Chart.Width < minChartWidth || c.Chart.Height < minChartHeight {
		return fmt.Errorf("%w: chart dimensions must be at least %dx%d, got %dx%d",
			ErrInvalid, minChartWidth, minChartHeight, c.Chart.Width, c.Chart.Height)
	}
	if c.Bucket.WidthMinutes <= 0 {
		return fmt.Errorf("%w: bucket width_minutes must be positive, got %d",
			ErrInvalid, c.Bucket.WidthMinutes)
	}
	if c.Target.Low <= 0 || c.Target.Low >= c.Target.High {
		return fmt.Errorf("%w: target range must satisfy 0 < low < high, got %g..%g",
			ErrInvalid, c.Target.Low, c.Target.High)
	}
	if c.Chart.YMax <= c.Target.High {
		return fmt.Errorf("%w: chart y_max %g must exceed target high %g",
			ErrInvalid, c.Chart.YMax, c.Target.High)
	}
	if c.Notes.Clearance <= 0 || c.Notes.StackStep <= 0 || c.Notes.ToleranceFactor <= 0 {
		return fmt.Errorf("%w: note clearance, stack_step and tolerance_factor must be positive",
			ErrInvalid)
	}
	if c.Font.Size <= 0 {
		return fmt.Errorf("%w: font size must be positive, got %g", ErrInvalid, c.Font.Size)
	}
	return nil
}

// BucketWidth returns the extrema interval as a Duration.
func (c *Config) BucketWidth() time.Duration {
	return time.Duration(c.Bucket.WidthMinutes) * time.Minute
}
