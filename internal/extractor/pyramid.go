package extractor

import (
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"go-nft-marker-gen/pkg/models"
)

// Level is one resolution step of the marker pyramid: the source image
// resampled to the resolution implied by its dpi, held as 8-bit grayscale.
type Level struct {
	Index  int
	Dpi    float64
	Width  int
	Height int
	Gray   *image.Gray
}

// BuildPyramid resamples the source into cfg.Levels grayscale levels with
// dpi values spaced evenly from cfg.MaxDpi (level 0, full resolution) down
// to cfg.MinDpi. Lanczos resampling keeps the result stable across runs.
func BuildPyramid(img image.Image, cfg models.GenerationConfig) []Level {
	if cfg.AutoEnhanceContrast && cfg.ContrastFactor > 1 {
		img = enhanceContrast(img, cfg.ContrastFactor)
	}

	bounds := img.Bounds()
	srcWidth, srcHeight := bounds.Dx(), bounds.Dy()

	levels := make([]Level, 0, cfg.Levels)
	for i := 0; i < cfg.Levels; i++ {
		dpi := levelDpi(cfg, i)
		scale := dpi / cfg.MaxDpi

		width := srcWidth
		height := srcHeight
		var scaled image.Image = img
		if scale < 1 {
			width = maxInt(1, int(math.Round(float64(srcWidth)*scale)))
			height = maxInt(1, int(math.Round(float64(srcHeight)*scale)))
			scaled = imaging.Resize(img, width, height, imaging.Lanczos)
		}

		gray := image.NewGray(image.Rect(0, 0, width, height))
		draw.Draw(gray, gray.Bounds(), scaled, scaled.Bounds().Min, draw.Src)

		levels = append(levels, Level{
			Index:  i,
			Dpi:    dpi,
			Width:  width,
			Height: height,
			Gray:   gray,
		})
	}
	return levels
}

// levelDpi returns the dpi of pyramid level i, descending from MaxDpi to
// MinDpi. A single-level pyramid sits at MaxDpi.
func levelDpi(cfg models.GenerationConfig, i int) float64 {
	if cfg.Levels <= 1 {
		return cfg.MaxDpi
	}
	step := (cfg.MaxDpi - cfg.MinDpi) / float64(cfg.Levels-1)
	return cfg.MaxDpi - float64(i)*step
}

// enhanceContrast maps the configured factor (1.0 = unchanged, 3.0 = max)
// onto imaging's percentage scale before the pyramid is built.
func enhanceContrast(img image.Image, factor float64) image.Image {
	if factor > 3 {
		factor = 3
	}
	return imaging.AdjustContrast(img, (factor-1)*25)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
