// Package geometry maps between native display pixels and preview-scaled
// screenshot pixels, and validates capture regions against screen bounds.
package geometry

import (
	"image"

	"github.com/deskpilot/platform/internal/errors"
)

// NativePoint is a coordinate in the display's physical resolution. Every
// coordinate returned to a caller for clicking is a NativePoint; values in
// preview-scaled space use PreviewPoint, so the two cannot be mixed up.
type NativePoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PreviewPoint is a coordinate within a downsampled full-screen preview.
// It is never a valid click target. No operation in this module returns
// one; the type exists so internal code that works in preview space cannot
// hand its values to an injector expecting native coordinates.
type PreviewPoint struct {
	X int
	Y int
}

// Region is a rectangle in native pixels.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FullScreen is the sentinel source for captures that cover the whole
// display. Width and height are filled in with the screen size.
func FullScreen(bounds Size) Region {
	return Region{X: 0, Y: 0, Width: bounds.Width, Height: bounds.Height}
}

// ValidateRegion checks a candidate region against the screen bounds.
// A region that extends past any edge is rejected, never clamped: a
// clamped zoom would report an origin the caller did not ask for, and
// every coordinate derived from it would be wrong.
func ValidateRegion(candidate Region, bounds Size) (Region, error) {
	if candidate.Width <= 0 || candidate.Height <= 0 {
		return Region{}, errors.Newf(errors.OutOfBounds,
			"region %dx%d has non-positive dimensions", candidate.Width, candidate.Height)
	}
	if candidate.X < 0 || candidate.Y < 0 {
		return Region{}, errors.Newf(errors.OutOfBounds,
			"region origin (%d,%d) is outside the screen", candidate.X, candidate.Y)
	}
	if candidate.X+candidate.Width > bounds.Width || candidate.Y+candidate.Height > bounds.Height {
		return Region{}, errors.Newf(errors.OutOfBounds,
			"region (%d,%d)+%dx%d exceeds screen %dx%d",
			candidate.X, candidate.Y, candidate.Width, candidate.Height,
			bounds.Width, bounds.Height)
	}
	return candidate, nil
}

// ScaleFactor returns the factor <= 1.0 that shrinks the longer native
// dimension down to maxDimension, preserving aspect ratio. Returns 1.0
// when the image already fits. This factor is the single source of truth:
// it produces the preview image and is reported to the caller, and it is
// never applied to coordinates, because detection always runs at native
// resolution.
func ScaleFactor(native Size, maxDimension int) float64 {
	long := native.Width
	if native.Height > long {
		long = native.Height
	}
	if maxDimension <= 0 || long <= maxDimension {
		return 1.0
	}
	return float64(maxDimension) / float64(long)
}

// ScaledSize applies a scale factor to a native size, rounding down.
func ScaledSize(native Size, factor float64) Size {
	if factor >= 1.0 {
		return native
	}
	return Size{
		Width:  int(float64(native.Width) * factor),
		Height: int(float64(native.Height) * factor),
	}
}

// ToNative returns the region itself. Zoom and full capture share one
// contract through this seam: what you ask for, in native pixels, at the
// origin you specified, is what you get.
func (r Region) ToNative() Region { return r }

// Rect converts to the stdlib rectangle used by capture backends.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Center returns the region's centroid in native coordinates.
func (r Region) Center() NativePoint {
	return NativePoint{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether a native point falls inside the region.
func (r Region) Contains(p NativePoint) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// IoU returns the intersection-over-union of two regions.
func IoU(a, b Region) float64 {
	inter := a.Rect().Intersect(b.Rect())
	if inter.Empty() {
		return 0
	}
	interArea := inter.Dx() * inter.Dy()
	union := a.Width*a.Height + b.Width*b.Height - interArea
	if union <= 0 {
		return 0
	}
	return float64(interArea) / float64(union)
}
