package screen

import (
	"testing"

	"github.com/kbinani/screenshot"

	"github.com/deskpilot/platform/internal/geometry"
)

// Integration tests: only meaningful with an attached display session.
func requireDisplay(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if screenshot.NumActiveDisplays() == 0 {
		t.Skip("no active display")
	}
}

func TestDisplayBounds(t *testing.T) {
	requireDisplay(t)

	d := NewDisplay()
	bounds, err := d.Bounds()
	if err != nil {
		t.Fatalf("Bounds error: %v", err)
	}
	if bounds.Width <= 0 || bounds.Height <= 0 {
		t.Errorf("bounds = %+v, want positive dimensions", bounds)
	}
}

func TestDisplayGrabFull(t *testing.T) {
	requireDisplay(t)

	d := NewDisplay()
	bounds, err := d.Bounds()
	if err != nil {
		t.Fatalf("Bounds error: %v", err)
	}

	img, err := d.GrabFull()
	if err != nil {
		t.Fatalf("GrabFull error: %v", err)
	}
	if img.Bounds().Dx() != bounds.Width || img.Bounds().Dy() != bounds.Height {
		t.Errorf("captured %dx%d, want %dx%d",
			img.Bounds().Dx(), img.Bounds().Dy(), bounds.Width, bounds.Height)
	}
}

func TestDisplayGrabRegion(t *testing.T) {
	requireDisplay(t)

	d := NewDisplay()
	region := geometry.Region{X: 0, Y: 0, Width: 64, Height: 48}
	img, err := d.GrabRegion(region)
	if err != nil {
		t.Fatalf("GrabRegion error: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("captured %dx%d, want 64x48", img.Bounds().Dx(), img.Bounds().Dy())
	}
}
