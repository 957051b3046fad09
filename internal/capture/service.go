// Package capture produces full-screen previews and native-resolution
// region grabs from the capture device, with enhancement threaded through
// consistently.
package capture

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/deskpilot/platform/internal/enhance"
	"github.com/deskpilot/platform/internal/geometry"
	"github.com/deskpilot/platform/internal/screen"
	"github.com/deskpilot/platform/internal/state"
)

// FullCapture is the result of a full-screen capture. The image may be
// downscaled; its ScaleFactor is reported so the caller knows, but no
// coordinate ever needs it: detection always runs at native resolution.
type FullCapture struct {
	Image       image.Image
	NativeSize  geometry.Size
	OutputSize  geometry.Size
	ScaleFactor float64
	Enhanced    bool
}

// RegionCapture is the result of a native-resolution region capture.
type RegionCapture struct {
	Image    image.Image
	Region   geometry.Region
	Enhanced bool
}

// Service owns the physical capture device. Requests are served one at a
// time: a single mutex spans reading the enhancement flag, grabbing the
// frame, and running the pipeline, so a toggle issued mid-capture can
// never produce an image whose enhanced flag disagrees with its pixels.
// Archival is the caller's decision; this service only captures.
type Service struct {
	mu     sync.Mutex
	device screen.Device
	state  *state.State
}

// New creates a capture service.
func New(device screen.Device, st *state.State) *Service {
	return &Service{device: device, state: st}
}

// ScreenSize returns the display's native dimensions.
func (s *Service) ScreenSize() (geometry.Size, error) {
	return s.device.Bounds()
}

// CaptureFull grabs the entire screen at native resolution, applies the
// enhancement pipeline per current process state, then downscales so the
// long edge is at most maxDimension (Lanczos). maxDimension <= 0 disables
// scaling.
func (s *Service) CaptureFull(maxDimension int) (FullCapture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enhanced := s.state.Enhancement()
	raw, err := s.device.GrabFull()
	if err != nil {
		return FullCapture{}, err
	}
	nativeSize := geometry.Size{Width: raw.Bounds().Dx(), Height: raw.Bounds().Dy()}

	img := enhance.Apply(raw, enhanced)

	factor := geometry.ScaleFactor(nativeSize, maxDimension)
	outputSize := nativeSize
	if factor < 1.0 {
		outputSize = geometry.ScaledSize(nativeSize, factor)
		img = imaging.Resize(img, outputSize.Width, outputSize.Height, imaging.Lanczos)
	}

	return FullCapture{
		Image:       img,
		NativeSize:  nativeSize,
		OutputSize:  outputSize,
		ScaleFactor: factor,
		Enhanced:    enhanced,
	}, nil
}

// CaptureRegion grabs a validated sub-rectangle at native resolution with
// no downsampling. This is the inspect-precisely path: what comes back is
// exactly the region requested, at the origin requested. Fails with
// OutOfBounds before touching the device if the region is invalid.
func (s *Service) CaptureRegion(region geometry.Region) (RegionCapture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bounds, err := s.device.Bounds()
	if err != nil {
		return RegionCapture{}, err
	}
	valid, err := geometry.ValidateRegion(region, bounds)
	if err != nil {
		return RegionCapture{}, err
	}

	enhanced := s.state.Enhancement()
	raw, err := s.device.GrabRegion(valid)
	if err != nil {
		return RegionCapture{}, err
	}

	return RegionCapture{
		Image:    enhance.Apply(raw, enhanced),
		Region:   valid,
		Enhanced: enhanced,
	}, nil
}

// CaptureNative grabs the full screen at native resolution with
// enhancement but without downscaling. Recognition runs on this so its
// coordinates come back in native space with no mapping step.
func (s *Service) CaptureNative() (FullCapture, error) {
	return s.CaptureFull(0)
}
