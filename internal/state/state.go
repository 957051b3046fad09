// Package state holds process-wide mutable settings: the enhancement
// toggle and an advisory cache of the last known pointer position.
package state

import (
	"github.com/deskpilot/platform/internal/geometry"
	"github.com/deskpilot/platform/internal/syncx"
)

// State is the process-wide mutable state. One instance lives for the
// process lifetime; nothing persists across restarts.
type State struct {
	enhancement *syncx.RWGuard[bool]
	pointer     *syncx.RWGuard[geometry.NativePoint]
}

// New creates process state with enhancement off.
func New() *State {
	return &State{
		enhancement: syncx.NewGuard(false),
		pointer:     syncx.NewGuard(geometry.NativePoint{}),
	}
}

// SetEnhancement atomically replaces the enhancement flag. It takes
// effect starting with the next capture; artifacts already archived keep
// the flag they were captured under.
func (s *State) SetEnhancement(enabled bool) {
	s.enhancement.Set(enabled)
}

// Enhancement returns the current enhancement flag. Captures read it
// exactly once, inside their own critical section, so a toggle issued
// mid-capture cannot produce an artifact whose flag disagrees with its
// pixels.
func (s *State) Enhancement() bool {
	return s.enhancement.Get()
}

// SetPointer records the last known pointer position. Advisory only: the
// OS cursor can move without this cache noticing.
func (s *State) SetPointer(p geometry.NativePoint) {
	s.pointer.Set(p)
}

// Pointer returns the cached pointer position.
func (s *State) Pointer() geometry.NativePoint {
	return s.pointer.Get()
}
