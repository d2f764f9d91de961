package extractor

import (
	"image"
	"sort"
)

// harrisK is the standard Harris corner measure trace weight.
const harrisK = 0.04

// candidate is a corner candidate before the percentile cutoff.
type candidate struct {
	x, y     int
	strength float64
}

// detectCorners runs the Harris corner detector over a grayscale level and
// returns candidates that survive 3x3 non-maximum suppression, ordered by
// strength descending with (y, x) as the tiebreak. The row-major scan and
// total ordering make the output deterministic for identical input bytes.
func detectCorners(gray *image.Gray) []candidate {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 5 || height < 5 {
		return nil
	}

	// Gradient products of the structure tensor.
	ixx := make([]float64, width*height)
	iyy := make([]float64, width*height)
	ixy := make([]float64, width*height)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			gx := float64(sobelX(gray, x, y))
			gy := float64(sobelY(gray, x, y))
			i := y*width + x
			ixx[i] = gx * gx
			iyy[i] = gy * gy
			ixy[i] = gx * gy
		}
	}

	// Harris response over a 3x3 tensor window.
	resp := make([]float64, width*height)
	for y := 2; y < height-2; y++ {
		for x := 2; x < width-2; x++ {
			var sxx, syy, sxy float64
			for dy := -1; dy <= 1; dy++ {
				base := (y+dy)*width + x
				for dx := -1; dx <= 1; dx++ {
					sxx += ixx[base+dx]
					syy += iyy[base+dx]
					sxy += ixy[base+dx]
				}
			}
			det := sxx*syy - sxy*sxy
			trace := sxx + syy
			resp[y*width+x] = det - harrisK*trace*trace
		}
	}

	// 3x3 non-maximum suppression; a candidate must strictly dominate its
	// neighborhood so ties cannot admit adjacent duplicates.
	var candidates []candidate
	for y := 3; y < height-3; y++ {
		for x := 3; x < width-3; x++ {
			r := resp[y*width+x]
			if r <= 0 {
				continue
			}
			isMax := true
			for dy := -1; dy <= 1 && isMax; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					if resp[(y+dy)*width+(x+dx)] >= r {
						isMax = false
						break
					}
				}
			}
			if isMax {
				candidates = append(candidates, candidate{x: x, y: y, strength: r})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].strength != candidates[j].strength {
			return candidates[i].strength > candidates[j].strength
		}
		if candidates[i].y != candidates[j].y {
			return candidates[i].y < candidates[j].y
		}
		return candidates[i].x < candidates[j].x
	})
	return candidates
}

// sobelX computes the horizontal Sobel gradient at (x, y).
func sobelX(gray *image.Gray, x, y int) int {
	return -1*int(gray.GrayAt(x-1, y-1).Y) + 1*int(gray.GrayAt(x+1, y-1).Y) +
		-2*int(gray.GrayAt(x-1, y).Y) + 2*int(gray.GrayAt(x+1, y).Y) +
		-1*int(gray.GrayAt(x-1, y+1).Y) + 1*int(gray.GrayAt(x+1, y+1).Y)
}

// sobelY computes the vertical Sobel gradient at (x, y).
func sobelY(gray *image.Gray, x, y int) int {
	return -1*int(gray.GrayAt(x-1, y-1).Y) - 2*int(gray.GrayAt(x, y-1).Y) - 1*int(gray.GrayAt(x+1, y-1).Y) +
		1*int(gray.GrayAt(x-1, y+1).Y) + 2*int(gray.GrayAt(x, y+1).Y) + 1*int(gray.GrayAt(x+1, y+1).Y)
}
