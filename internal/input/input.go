// Package input injects mouse and keyboard events. Thin glue over the
// OS event synthesizer; all coordinates are native pixels.
package input

import (
	"strings"

	"github.com/go-vgo/robotgo"

	"github.com/deskpilot/platform/internal/errors"
	"github.com/deskpilot/platform/internal/geometry"
	"github.com/deskpilot/platform/internal/state"
)

// Injector synthesizes input events and keeps the process-state pointer
// cache in step with what it injects.
type Injector struct {
	state *state.State
}

// New creates an injector.
func New(st *state.State) *Injector {
	return &Injector{state: st}
}

// Move moves the cursor to a native coordinate.
func (in *Injector) Move(p geometry.NativePoint) {
	robotgo.Move(p.X, p.Y)
	in.state.SetPointer(p)
}

// LeftClick clicks the primary button at a native coordinate.
func (in *Injector) LeftClick(p geometry.NativePoint) {
	robotgo.Move(p.X, p.Y)
	robotgo.Click("left", false)
	in.state.SetPointer(p)
}

// RightClick clicks the secondary button at a native coordinate.
func (in *Injector) RightClick(p geometry.NativePoint) {
	robotgo.Move(p.X, p.Y)
	robotgo.Click("right", false)
	in.state.SetPointer(p)
}

// DoubleClick double-clicks the primary button at a native coordinate.
func (in *Injector) DoubleClick(p geometry.NativePoint) {
	robotgo.Move(p.X, p.Y)
	robotgo.Click("left", true)
	in.state.SetPointer(p)
}

// Drag presses at from, drags to to, and releases.
func (in *Injector) Drag(from, to geometry.NativePoint) {
	robotgo.Move(from.X, from.Y)
	robotgo.DragSmooth(to.X, to.Y)
	in.state.SetPointer(to)
}

// Scroll scrolls at a native coordinate. Direction is one of up, down,
// left, right.
func (in *Injector) Scroll(p geometry.NativePoint, direction string, amount int) error {
	if amount <= 0 {
		amount = 3
	}
	var dx, dy int
	switch direction {
	case "up":
		dy = amount
	case "down":
		dy = -amount
	case "right":
		dx = amount
	case "left":
		dx = -amount
	default:
		return errors.Newf(errors.Invalid, "unknown scroll direction %q", direction)
	}
	robotgo.Move(p.X, p.Y)
	robotgo.Scroll(dx, dy)
	in.state.SetPointer(p)
	return nil
}

// TypeText types a string, unicode included.
func (in *Injector) TypeText(text string) {
	robotgo.TypeStr(text)
}

// Key presses a key or chord like "enter", "ctrl+s", "ctrl+shift+t".
func (in *Injector) Key(chord string) error {
	key, mods, err := parseChord(chord)
	if err != nil {
		return err
	}
	return robotgo.KeyTap(key, mods...)
}

// Pointer reads the cursor position from the OS and refreshes the cache.
func (in *Injector) Pointer() geometry.NativePoint {
	x, y := robotgo.Location()
	p := geometry.NativePoint{X: x, Y: y}
	in.state.SetPointer(p)
	return p
}

// parseChord splits "ctrl+shift+t" into the key ("t") and its modifiers.
func parseChord(chord string) (string, []any, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(chord)), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return "", nil, errors.Newf(errors.Invalid, "empty key chord %q", chord)
	}
	key := parts[len(parts)-1]
	mods := make([]any, 0, len(parts)-1)
	for _, m := range parts[:len(parts)-1] {
		if m == "" {
			return "", nil, errors.Newf(errors.Invalid, "malformed key chord %q", chord)
		}
		mods = append(mods, m)
	}
	return key, mods, nil
}
