package encoder

import (
	"image"
	"math"
)

// DescriptorSize is the fixed per-feature descriptor length in the .fset3
// format: 16 samples on each of two rings around the keypoint.
const DescriptorSize = 32

// ringOffsets holds the integer sample offsets for both descriptor rings,
// radius 2 first then radius 4, 16 samples each. Computed once; the sample
// order is part of the wire contract.
var ringOffsets = buildRingOffsets()

func buildRingOffsets() [DescriptorSize][2]int {
	var offsets [DescriptorSize][2]int
	radii := [2]float64{2, 4}
	for ring := 0; ring < 2; ring++ {
		for k := 0; k < 16; k++ {
			angle := 2 * math.Pi * float64(k) / 16
			offsets[ring*16+k] = [2]int{
				int(math.Round(radii[ring] * math.Cos(angle))),
				int(math.Round(radii[ring] * math.Sin(angle))),
			}
		}
	}
	return offsets
}

// computeDescriptor samples the grayscale neighborhood of a keypoint and
// returns centre-relative intensities normalized to [-1, 1]. Samples beyond
// the image border clamp to the nearest edge pixel, so descriptors stay
// deterministic for keypoints near the boundary.
func computeDescriptor(gray *image.Gray, x, y int) [DescriptorSize]float32 {
	bounds := gray.Bounds()
	centre := float64(gray.GrayAt(clampInt(x, bounds.Min.X, bounds.Max.X-1), clampInt(y, bounds.Min.Y, bounds.Max.Y-1)).Y)

	var desc [DescriptorSize]float32
	for i, off := range ringOffsets {
		sx := clampInt(x+off[0], bounds.Min.X, bounds.Max.X-1)
		sy := clampInt(y+off[1], bounds.Min.Y, bounds.Max.Y-1)
		desc[i] = float32((float64(gray.GrayAt(sx, sy).Y) - centre) / 255.0)
	}
	return desc
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
