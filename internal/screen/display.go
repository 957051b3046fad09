package screen

import (
	"image"

	"github.com/kbinani/screenshot"

	"github.com/deskpilot/platform/internal/errors"
	"github.com/deskpilot/platform/internal/geometry"
)

// Display captures from the primary physical display.
type Display struct{}

// NewDisplay creates a capture device for the primary display.
func NewDisplay() *Display {
	return &Display{}
}

// Bounds returns the primary display's native dimensions.
func (d *Display) Bounds() (geometry.Size, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return geometry.Size{}, errors.New(errors.DeviceUnavailable, "no active displays found")
	}
	b := screenshot.GetDisplayBounds(0)
	return geometry.Size{Width: b.Dx(), Height: b.Dy()}, nil
}

// GrabFull captures the entire primary display.
func (d *Display) GrabFull() (*image.RGBA, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, errors.New(errors.DeviceUnavailable, "no active displays found")
	}
	img, err := screenshot.CaptureRect(screenshot.GetDisplayBounds(0))
	if err != nil {
		return nil, errors.Wrap(err, errors.DeviceUnavailable, "full-screen capture failed")
	}
	return img, nil
}

// GrabRegion captures a sub-rectangle of the primary display. Coordinates
// are relative to the display origin; multi-monitor offsets are applied
// here so callers stay in a (0,0)-origin native space.
func (d *Display) GrabRegion(region geometry.Region) (*image.RGBA, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, errors.New(errors.DeviceUnavailable, "no active displays found")
	}
	origin := screenshot.GetDisplayBounds(0).Min
	rect := region.Rect().Add(origin)
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, errors.Wrapf(err, errors.DeviceUnavailable,
			"region capture (%d,%d)+%dx%d failed", region.X, region.Y, region.Width, region.Height)
	}
	return img, nil
}
