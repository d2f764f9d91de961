package extractor

import (
	"fmt"
	"image"
	"sort"

	"gonum.org/v1/gonum/stat"

	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/pkg/models"
)

// LevelFeatures pairs one pyramid level's imagery with the keypoints
// retained at that level.
type LevelFeatures struct {
	Level  Level
	Points []models.FeaturePoint
}

// Result is the full extraction output handed to the encoder.
type Result struct {
	Levels []LevelFeatures
	Width  int
	Height int
}

// densityQuantiles maps a feature density tier to the response quantile a
// candidate must exceed to be retained: low keeps the top 30%, medium the
// top 60%, high the top 90%.
var densityQuantiles = map[models.FeatureDensity]float64{
	models.DensityLow:    0.70,
	models.DensityMedium: 0.40,
	models.DensityHigh:   0.10,
}

// FeatureExtractor builds the resolution pyramid and detects scored
// keypoints per level. Identical image bytes and config always yield
// identical, identically ordered output.
type FeatureExtractor struct {
	maxPerLevel     int
	minBaseFeatures int
}

// Option tunes a FeatureExtractor.
type Option func(*FeatureExtractor)

// WithMaxFeaturesPerLevel overrides the per-level retention cap.
func WithMaxFeaturesPerLevel(n int) Option {
	return func(fe *FeatureExtractor) { fe.maxPerLevel = n }
}

// WithMinBaseFeatures overrides the minimum base-level feature count.
func WithMinBaseFeatures(n int) Option {
	return func(fe *FeatureExtractor) { fe.minBaseFeatures = n }
}

// NewFeatureExtractor creates an extractor with the default caps: at most
// 500 points per level, at least 50 on the base level.
func NewFeatureExtractor(opts ...Option) *FeatureExtractor {
	fe := &FeatureExtractor{
		maxPerLevel:     500,
		minBaseFeatures: 50,
	}
	for _, opt := range opts {
		opt(fe)
	}
	return fe
}

// Extract builds the pyramid and detects keypoints at every level. It fails
// with an extraction error when the base level yields fewer features than
// the configured minimum, which signals an untrackable image regardless of
// its quality class.
func (fe *FeatureExtractor) Extract(img image.Image, cfg models.GenerationConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("invalid generation config", err)
	}

	pyramid := BuildPyramid(img, cfg)
	quantile := densityQuantiles[cfg.FeatureDensity]

	result := &Result{
		Levels: make([]LevelFeatures, 0, len(pyramid)),
		Width:  pyramid[0].Width,
		Height: pyramid[0].Height,
	}

	for _, level := range pyramid {
		candidates := detectCorners(level.Gray)

		if level.Index == 0 && len(candidates) < fe.minBaseFeatures {
			return nil, apperrors.NewExtractionError(
				fmt.Sprintf("base level yielded %d features, minimum is %d",
					len(candidates), fe.minBaseFeatures), nil)
		}

		points := fe.retain(candidates, quantile, level.Index)
		result.Levels = append(result.Levels, LevelFeatures{
			Level:  level,
			Points: points,
		})
	}

	return result, nil
}

// retain applies the density percentile cutoff and the per-level cap.
// Candidates arrive strength-descending; the retained slice keeps that
// order.
func (fe *FeatureExtractor) retain(candidates []candidate, quantile float64, levelIndex int) []models.FeaturePoint {
	if len(candidates) == 0 {
		return nil
	}

	// stat.Quantile needs an ascending copy of the responses.
	strengths := make([]float64, len(candidates))
	for i, c := range candidates {
		strengths[i] = c.strength
	}
	sort.Float64s(strengths)
	cutoff := stat.Quantile(quantile, stat.Empirical, strengths, nil)

	points := make([]models.FeaturePoint, 0, len(candidates))
	for _, c := range candidates {
		if c.strength < cutoff {
			continue
		}
		points = append(points, models.FeaturePoint{
			X:        float64(c.x),
			Y:        float64(c.y),
			Strength: c.strength,
			Level:    levelIndex,
		})
		if len(points) == fe.maxPerLevel {
			break
		}
	}
	return points
}
