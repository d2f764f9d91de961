package analyzer

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"gonum.org/v1/gonum/stat"

	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/pkg/models"
)

// Thresholds defines the dimension limits and contrast class boundaries
// used by the quality analyzer.
type Thresholds struct {
	MinDimension int
	MaxDimension int
	MaxPixels    int

	// Contrast (luminance standard deviation, 0-255 scale) class cutoffs.
	ExcellentContrast float64
	GoodContrast      float64
	FairContrast      float64
}

// DefaultThresholds returns the default analyzer thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinDimension:      100,
		MaxDimension:      8192,
		MaxPixels:         50_000_000,
		ExcellentContrast: 90,
		GoodContrast:      60,
		FairContrast:      30,
	}
}

// Fixed recommendation per quality class. The runtime surfaces these
// verbatim to the person choosing a marker image.
var recommendations = map[models.QualityClass]string{
	models.QualityExcellent: "Image has excellent contrast and should track reliably.",
	models.QualityGood:      "Image should track well in most conditions.",
	models.QualityFair:      "Image may track inconsistently. Consider enabling contrast enhancement.",
	models.QualityPoor:      "Image is unlikely to track. Choose an image with more contrast and detail.",
}

// maxLuminanceSamples bounds the analysis cost on very large inputs. The
// sampling stride is deterministic, so repeated runs score identically.
const maxLuminanceSamples = 1 << 20

// QualityAnalyzer scores an image's brightness and contrast and classifies
// its expected tracking reliability. Pure over the image bytes.
type QualityAnalyzer struct {
	thresholds Thresholds
}

// NewQualityAnalyzer creates an analyzer with default thresholds.
func NewQualityAnalyzer() *QualityAnalyzer {
	return &QualityAnalyzer{thresholds: DefaultThresholds()}
}

// NewQualityAnalyzerWithThresholds creates an analyzer with custom thresholds.
func NewQualityAnalyzerWithThresholds(thresholds Thresholds) *QualityAnalyzer {
	return &QualityAnalyzer{thresholds: thresholds}
}

// AnalyzeBytes decodes raw image bytes and analyzes them. An undecodable
// input fails with a validation error.
func (qa *QualityAnalyzer) AnalyzeBytes(data []byte) (models.QualityAnalysis, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return models.QualityAnalysis{}, apperrors.NewValidationError("image could not be decoded", err)
	}
	return qa.Analyze(img)
}

// Analyze computes brightness (mean sampled luminance) and contrast
// (standard deviation of sampled luminance) and classifies trackability.
func (qa *QualityAnalyzer) Analyze(img image.Image) (models.QualityAnalysis, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if err := qa.validateDimensions(width, height); err != nil {
		return models.QualityAnalysis{}, err
	}

	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	samples := sampleLuminance(gray)
	brightness := stat.Mean(samples, nil)
	contrast := stat.StdDev(samples, nil)

	class := qa.classify(contrast)

	return models.QualityAnalysis{
		Brightness:     brightness,
		Contrast:       contrast,
		QualityClass:   class,
		Recommendation: recommendations[class],
		Width:          width,
		Height:         height,
	}, nil
}

func (qa *QualityAnalyzer) validateDimensions(width, height int) error {
	t := qa.thresholds
	if width < t.MinDimension || height < t.MinDimension {
		return apperrors.NewValidationError(
			fmt.Sprintf("image %dx%d is below the minimum dimensions %dx%d",
				width, height, t.MinDimension, t.MinDimension), nil)
	}
	if width > t.MaxDimension || height > t.MaxDimension {
		return apperrors.NewValidationError(
			fmt.Sprintf("image %dx%d exceeds the maximum dimensions %dx%d",
				width, height, t.MaxDimension, t.MaxDimension), nil)
	}
	if width*height > t.MaxPixels {
		return apperrors.NewValidationError(
			fmt.Sprintf("image area %d px exceeds the maximum of %d px",
				width*height, t.MaxPixels), nil)
	}
	return nil
}

func (qa *QualityAnalyzer) classify(contrast float64) models.QualityClass {
	t := qa.thresholds
	switch {
	case contrast > t.ExcellentContrast:
		return models.QualityExcellent
	case contrast >= t.GoodContrast:
		return models.QualityGood
	case contrast >= t.FairContrast:
		return models.QualityFair
	default:
		return models.QualityPoor
	}
}

// sampleLuminance collects gray values on a fixed grid. The stride grows
// with image area so the sample count stays below maxLuminanceSamples.
func sampleLuminance(gray *image.Gray) []float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	stride := 1
	for (width/stride)*(height/stride) > maxLuminanceSamples {
		stride++
	}

	samples := make([]float64, 0, (width/stride+1)*(height/stride+1))
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			samples = append(samples, float64(gray.GrayAt(x, y).Y))
		}
	}
	return samples
}
