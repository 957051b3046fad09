// Package enhance applies the contrast enhancement pipeline to captured
// images. The pipeline is a pure function of the input image and the
// enabled flag: same input, same flag, byte-identical output.
package enhance

import (
	"image"

	"github.com/disintegration/imaging"
)

// Pipeline tuning. These are fixed: the pipeline takes no configuration
// beyond the on/off flag.
const (
	// SharpenSigma is the gaussian sigma for the sharpening convolution.
	SharpenSigma = 1.0

	// SaturationBoost is the percentage increase applied after sharpening,
	// making adjacent UI colors easier to tell apart.
	SaturationBoost = 20.0
)

// Apply runs the enhancement pipeline when enabled. When disabled it
// returns the input unchanged, without copying. When enabled the input is
// never mutated; all work happens on a clone.
//
// Order: per-channel contrast stretch, sharpen, saturation boost.
func Apply(img image.Image, enabled bool) image.Image {
	if !enabled {
		return img
	}
	out := stretchContrast(imaging.Clone(img))
	out = imaging.Sharpen(out, SharpenSigma)
	out = imaging.AdjustSaturation(out, SaturationBoost)
	return out
}

// stretchContrast remaps each channel linearly so its own min..max covers
// the full 0..255 range. Using the image's actual bounds rather than a
// fixed percentile guarantees full dynamic range on any input, including
// washed-out low-contrast UI themes. Mutates img in place; callers pass a
// clone.
func stretchContrast(img *image.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	if bounds.Empty() {
		return img
	}

	var lo, hi [3]uint8
	for c := 0; c < 3; c++ {
		lo[c] = 255
		hi[c] = 0
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, y):img.PixOffset(bounds.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			for c := 0; c < 3; c++ {
				v := row[i+c]
				if v < lo[c] {
					lo[c] = v
				}
				if v > hi[c] {
					hi[c] = v
				}
			}
		}
	}

	// Build one lookup table per channel. A flat channel (lo == hi) has no
	// range to stretch and is left alone.
	var lut [3][256]uint8
	for c := 0; c < 3; c++ {
		if lo[c] >= hi[c] {
			for v := 0; v < 256; v++ {
				lut[c][v] = uint8(v)
			}
			continue
		}
		span := int(hi[c]) - int(lo[c])
		for v := 0; v < 256; v++ {
			switch {
			case v <= int(lo[c]):
				lut[c][v] = 0
			case v >= int(hi[c]):
				lut[c][v] = 255
			default:
				lut[c][v] = uint8((v - int(lo[c])) * 255 / span)
			}
		}
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, y):img.PixOffset(bounds.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			row[i] = lut[0][row[i]]
			row[i+1] = lut[1][row[i+1]]
			row[i+2] = lut[2][row[i+2]]
		}
	}
	return img
}
