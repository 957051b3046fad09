// Package screen provides access to the physical display capture device.
package screen

import (
	"image"

	"github.com/deskpilot/platform/internal/geometry"
)

// Device produces raw native-resolution pixel buffers from a display.
// Implementations do not scale, enhance, or archive; that belongs to the
// capture service layered above.
type Device interface {
	// Bounds returns the primary display's native dimensions.
	Bounds() (geometry.Size, error)

	// GrabFull captures the entire primary display at native resolution.
	GrabFull() (*image.RGBA, error)

	// GrabRegion captures a sub-rectangle at native resolution. The region
	// is assumed already validated against Bounds.
	GrabRegion(region geometry.Region) (*image.RGBA, error)
}
