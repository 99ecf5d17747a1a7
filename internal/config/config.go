// Package config defines the pipeline configuration and its loading rules.
//
// Values are layered: defaults from New, then an optional YAML file, then
// ANOMALY_* environment variables. Load validates the merged result.
package config

import (
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Rows is the number of synthetic telemetry rows to generate.
	Rows int `koanf:"rows"`
	// Seed drives every PRNG in the run (generator and forest).
	Seed int64 `koanf:"seed"`
	// OutlierFraction is the share of generated rows replaced by spikes.
	OutlierFraction float64 `koanf:"outlier_fraction"`

	// Contamination is the expected anomaly fraction used by the detector.
	Contamination float64 `koanf:"contamination"`
	// Trees is the number of isolation trees.
	Trees int `koanf:"trees"`
	// SampleSize caps the per-tree sub-sample; 0 means min(256, rows).
	SampleSize int `koanf:"sample_size"`

	// ScoreChart and TelemetryChart are output paths; empty disables a chart.
	ScoreChart     string `koanf:"score_chart"`
	TelemetryChart string `koanf:"telemetry_chart"`
	// ChartWidth and ChartHeight are in centimeters.
	ChartWidth  float64 `koanf:"chart_width"`
	ChartHeight float64 `koanf:"chart_height"`

	// MetricsFile, when set, receives a Prometheus text exposition after the run.
	MetricsFile string `koanf:"metrics_file"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Rows:            1000,
		Seed:            42,
		OutlierFraction: 0.05,
		Contamination:   0.05,
		Trees:           100,
		SampleSize:      0,
		ScoreChart:      "anomaly_scores.png",
		TelemetryChart:  "telemetry.png",
		ChartWidth:      25,
		ChartHeight:     10,
		MetricsFile:     "",
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Rows <= 0:
		return fmt.Errorf("%w: rows must be positive, got %d", ErrInvalidConfig, c.Rows)
	case c.Trees <= 0:
		return fmt.Errorf("%w: trees must be positive, got %d", ErrInvalidConfig, c.Trees)
	case c.SampleSize < 0:
		return fmt.Errorf("%w: sample_size must not be negative, got %d", ErrInvalidConfig, c.SampleSize)
	case c.Contamination <= 0 || c.Contamination > 0.5:
		return fmt.Errorf("%w: contamination must be in (0, 0.5], got %g", ErrInvalidConfig, c.Contamination)
	case c.OutlierFraction < 0 || c.OutlierFraction >= 1:
		return fmt.Errorf("%w: outlier_fraction must be in [0, 1), got %g", ErrInvalidConfig, c.OutlierFraction)
	case c.ChartWidth <= 0 || c.ChartHeight <= 0:
		return fmt.Errorf("%w: chart size must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
