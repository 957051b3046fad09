package capture

import (
	"image"
	"image/color"
	"testing"

	"github.com/deskpilot/platform/internal/errors"
	"github.com/deskpilot/platform/internal/geometry"
	"github.com/deskpilot/platform/internal/state"
)

// fakeDevice serves synthetic frames from memory.
type fakeDevice struct {
	bounds    geometry.Size
	grabs     int
	boundsErr error
	grabErr   error
}

func (f *fakeDevice) Bounds() (geometry.Size, error) {
	if f.boundsErr != nil {
		return geometry.Size{}, f.boundsErr
	}
	return f.bounds, nil
}

func (f *fakeDevice) frame(r image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((r.Min.X + x) % 200),
				G: uint8((r.Min.Y + y) % 200),
				B: 90,
				A: 255,
			})
		}
	}
	return img
}

func (f *fakeDevice) GrabFull() (*image.RGBA, error) {
	if f.grabErr != nil {
		return nil, f.grabErr
	}
	f.grabs++
	return f.frame(image.Rect(0, 0, f.bounds.Width, f.bounds.Height)), nil
}

func (f *fakeDevice) GrabRegion(region geometry.Region) (*image.RGBA, error) {
	if f.grabErr != nil {
		return nil, f.grabErr
	}
	f.grabs++
	return f.frame(region.Rect()), nil
}

func newTestService(w, h int) (*Service, *fakeDevice, *state.State) {
	dev := &fakeDevice{bounds: geometry.Size{Width: w, Height: h}}
	st := state.New()
	return New(dev, st), dev, st
}

func TestCaptureRegionExactDimensions(t *testing.T) {
	svc, _, _ := newTestService(1920, 1080)

	tests := []geometry.Region{
		{X: 100, Y: 50, Width: 400, Height: 300},
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 1520, Y: 780, Width: 400, Height: 300},
	}

	for _, r := range tests {
		got, err := svc.CaptureRegion(r)
		if err != nil {
			t.Fatalf("CaptureRegion(%+v) error: %v", r, err)
		}
		if got.Image.Bounds().Dx() != r.Width || got.Image.Bounds().Dy() != r.Height {
			t.Errorf("captured %dx%d, want exactly %dx%d",
				got.Image.Bounds().Dx(), got.Image.Bounds().Dy(), r.Width, r.Height)
		}
		if got.Region != r {
			t.Errorf("result region %+v, want %+v", got.Region, r)
		}
	}
}

func TestCaptureRegionOutOfBounds(t *testing.T) {
	svc, dev, _ := newTestService(1920, 1080)

	tests := []geometry.Region{
		{X: -1, Y: 0, Width: 100, Height: 100},
		{X: 0, Y: -10, Width: 100, Height: 100},
		{X: 1900, Y: 0, Width: 100, Height: 100},
		{X: 0, Y: 1000, Width: 100, Height: 100},
		{X: 0, Y: 0, Width: 0, Height: 100},
	}

	for _, r := range tests {
		_, err := svc.CaptureRegion(r)
		if err == nil {
			t.Fatalf("CaptureRegion(%+v) should fail", r)
		}
		if !errors.IsKind(err, errors.OutOfBounds) {
			t.Errorf("CaptureRegion(%+v) kind = %v, want OutOfBounds", r, errors.KindOf(err))
		}
	}
	if dev.grabs != 0 {
		t.Errorf("device grabbed %d times for invalid regions, want 0", dev.grabs)
	}
}

func TestCaptureFullScaling(t *testing.T) {
	svc, _, _ := newTestService(3840, 2160)

	got, err := svc.CaptureFull(1920)
	if err != nil {
		t.Fatalf("CaptureFull error: %v", err)
	}
	if got.ScaleFactor != 0.5 {
		t.Errorf("scale factor = %v, want 0.5", got.ScaleFactor)
	}
	long := got.Image.Bounds().Dx()
	if got.Image.Bounds().Dy() > long {
		long = got.Image.Bounds().Dy()
	}
	if long != 1920 {
		t.Errorf("long edge = %d, want 1920", long)
	}
	if got.NativeSize != (geometry.Size{Width: 3840, Height: 2160}) {
		t.Errorf("native size = %+v, want 3840x2160", got.NativeSize)
	}

	// Region captures are never affected by any prior preview scaling.
	region, err := svc.CaptureRegion(geometry.Region{X: 100, Y: 50, Width: 400, Height: 300})
	if err != nil {
		t.Fatalf("CaptureRegion error: %v", err)
	}
	if region.Image.Bounds().Dx() != 400 || region.Image.Bounds().Dy() != 300 {
		t.Errorf("region is %dx%d, want 400x300",
			region.Image.Bounds().Dx(), region.Image.Bounds().Dy())
	}
}

func TestCaptureFullNoScalingNeeded(t *testing.T) {
	svc, _, _ := newTestService(1280, 720)

	got, err := svc.CaptureFull(1920)
	if err != nil {
		t.Fatalf("CaptureFull error: %v", err)
	}
	if got.ScaleFactor != 1.0 {
		t.Errorf("scale factor = %v, want 1.0", got.ScaleFactor)
	}
	if got.OutputSize != got.NativeSize {
		t.Errorf("output %+v should equal native %+v", got.OutputSize, got.NativeSize)
	}
}

func TestEnhancedFlagMatchesToggleAtCaptureStart(t *testing.T) {
	svc, _, st := newTestService(320, 240)

	st.SetEnhancement(true)
	first, err := svc.CaptureFull(0)
	if err != nil {
		t.Fatalf("CaptureFull error: %v", err)
	}

	st.SetEnhancement(false)
	second, err := svc.CaptureFull(0)
	if err != nil {
		t.Fatalf("CaptureFull error: %v", err)
	}

	if !first.Enhanced {
		t.Error("first capture should report enhanced")
	}
	if second.Enhanced {
		t.Error("second capture should not report enhanced")
	}
}

func TestDeviceUnavailableSurfaces(t *testing.T) {
	dev := &fakeDevice{
		bounds:  geometry.Size{Width: 100, Height: 100},
		grabErr: errors.New(errors.DeviceUnavailable, "no active displays found"),
	}
	svc := New(dev, state.New())

	if _, err := svc.CaptureFull(1920); !errors.IsKind(err, errors.DeviceUnavailable) {
		t.Errorf("CaptureFull kind = %v, want DeviceUnavailable", errors.KindOf(err))
	}
	if _, err := svc.CaptureRegion(geometry.Region{X: 0, Y: 0, Width: 10, Height: 10}); !errors.IsKind(err, errors.DeviceUnavailable) {
		t.Errorf("CaptureRegion kind = %v, want DeviceUnavailable", errors.KindOf(err))
	}
}

func TestCaptureNativeIsUnscaled(t *testing.T) {
	svc, _, _ := newTestService(800, 600)

	got, err := svc.CaptureNative()
	if err != nil {
		t.Fatalf("CaptureNative error: %v", err)
	}
	if got.ScaleFactor != 1.0 {
		t.Errorf("scale factor = %v, want 1.0", got.ScaleFactor)
	}
	if got.Image.Bounds().Dx() != 800 || got.Image.Bounds().Dy() != 600 {
		t.Errorf("native capture is %dx%d, want 800x600",
			got.Image.Bounds().Dx(), got.Image.Bounds().Dy())
	}
}
