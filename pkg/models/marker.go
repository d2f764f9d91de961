package models

import (
	"fmt"
	"time"
)

// QualityClass is the coarse trackability bucket assigned by the analyzer.
type QualityClass string

const (
	QualityExcellent QualityClass = "excellent"
	QualityGood      QualityClass = "good"
	QualityFair      QualityClass = "fair"
	QualityPoor      QualityClass = "poor"
)

// FeatureDensity selects how many keypoints survive the percentile cutoff
// at each pyramid level.
type FeatureDensity string

const (
	DensityLow    FeatureDensity = "low"
	DensityMedium FeatureDensity = "medium"
	DensityHigh   FeatureDensity = "high"
)

// QualityAnalysis is the result of scoring a source image for trackability.
type QualityAnalysis struct {
	Brightness     float64      `json:"brightness"`
	Contrast       float64      `json:"contrast"`
	QualityClass   QualityClass `json:"quality_class"`
	Recommendation string       `json:"recommendation"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Cached         bool         `json:"cached"`
}

// GenerationConfig bundles the tunable parameters of one marker generation.
// Presets persist exactly this shape under a unique name.
type GenerationConfig struct {
	MinDpi              float64        `json:"min_dpi"`
	MaxDpi              float64        `json:"max_dpi"`
	Levels              int            `json:"levels"`
	FeatureDensity      FeatureDensity `json:"feature_density"`
	AutoEnhanceContrast bool           `json:"auto_enhance_contrast"`
	ContrastFactor      float64        `json:"contrast_factor"`
}

// DefaultGenerationConfig mirrors the parameters used when a caller supplies
// no preset.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MinDpi:         72,
		MaxDpi:         144,
		Levels:         3,
		FeatureDensity: DensityMedium,
		ContrastFactor: 1.0,
	}
}

// Validate checks the config against the allowed parameter ranges. The
// returned error is a plain description; callers wrap it into their own
// error taxonomy.
func (c GenerationConfig) Validate() error {
	if c.Levels < 1 || c.Levels > 5 {
		return fmt.Errorf("levels must be in [1,5], got %d", c.Levels)
	}
	switch c.FeatureDensity {
	case DensityLow, DensityMedium, DensityHigh:
	default:
		return fmt.Errorf("feature density must be low, medium, or high, got %q", c.FeatureDensity)
	}
	if c.ContrastFactor < 1.0 || c.ContrastFactor > 3.0 {
		return fmt.Errorf("contrast factor must be in [1.0,3.0], got %g", c.ContrastFactor)
	}
	if c.MinDpi <= 0 || c.MaxDpi <= 0 {
		return fmt.Errorf("dpi values must be positive, got min=%g max=%g", c.MinDpi, c.MaxDpi)
	}
	if c.MinDpi > c.MaxDpi {
		return fmt.Errorf("min dpi %g exceeds max dpi %g", c.MinDpi, c.MaxDpi)
	}
	return nil
}

// FeaturePoint is a single detected keypoint at one pyramid level.
type FeaturePoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Strength float64 `json:"strength"`
	Level    int     `json:"level"`
}

// MarkerArtifact describes a finished marker: the three companion files plus
// the parameters they were generated with. All three files exist together or
// not at all.
type MarkerArtifact struct {
	MarkerName        string    `json:"marker_name"`
	Levels            int       `json:"levels"`
	MinDpi            float64   `json:"min_dpi"`
	MaxDpi            float64   `json:"max_dpi"`
	FeatureDensity    string    `json:"feature_density"`
	FSetPath          string    `json:"fset_path"`
	FSet3Path         string    `json:"fset3_path"`
	ISetPath          string    `json:"iset_path"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	GeneratedAt       time.Time `json:"generated_at"`
	SourceFingerprint string    `json:"source_fingerprint"`
}

// GCReport summarizes one garbage collection run over the markers root.
type GCReport struct {
	TotalMarkers  int      `json:"total_markers"`
	UsedMarkers   int      `json:"used_markers"`
	UnusedMarkers int      `json:"unused_markers"`
	DeletedCount  int      `json:"deleted_count"`
	FreedBytes    int64    `json:"freed_bytes"`
	DryRun        bool     `json:"dry_run"`
	Errors        []string `json:"errors,omitempty"`
}

// MetricsSnapshot is a point-in-time view of the engine counters with
// derived rates. Denominator-less rates are zero, never NaN.
type MetricsSnapshot struct {
	TotalGenerated   int64         `json:"total_generated"`
	TotalTime        time.Duration `json:"total_time"`
	CacheHits        int64         `json:"cache_hits"`
	CacheMisses      int64         `json:"cache_misses"`
	AvgTimePerMarker time.Duration `json:"avg_time_per_marker"`
	CacheHitRate     float64       `json:"cache_hit_rate"`
}
