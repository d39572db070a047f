package dispatch

import (
	"time"

	"github.com/tabletd/tabletd/internal/axis"
	"github.com/tabletd/tabletd/internal/fixed"
	"github.com/tabletd/tabletd/internal/tool"
)

// ButtonState is the PRESSED|RELEASED state carried by a Button event
// (spec.md §6.2).
type ButtonState uint8

const (
	Pressed ButtonState = iota
	Released
)

func (s ButtonState) String() string {
	if s == Pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

// Event is the closed set of high-level events the Dispatcher emits
// (spec.md §6.2). The set is fixed and small, so a tagged interface is
// preferred over a vtable-style dispatch (spec.md §9's "Dynamic dispatch"
// design note, applied here to events rather than dispatcher kinds).
type Event interface {
	Timestamp() time.Time
	isEvent()
}

type base struct{ T time.Time }

func (b base) Timestamp() time.Time { return b.T }
func (base) isEvent()               {}

// ProximityIn is emitted when a tool enters proximity (spec.md §6.2,
// equivalent to TOOL_UPDATE with a non-NONE tool).
type ProximityIn struct {
	base
	Tool   tool.Ref
	Type   tool.Type
	Serial uint32
}

// ProximityOut is emitted when the active tool leaves proximity
// (equivalent to TOOL_UPDATE(NONE, 0)).
type ProximityOut struct{ base }

// MotionAbsolute carries a new absolute stylus position.
type MotionAbsolute struct {
	base
	X, Y int32
}

// Axis carries a normalized continuous-axis update. Value holds either a
// fixed.Q24_8 (pressure/tilt) or an int32 (distance, device units) per
// spec.md §4.2.
type Axis struct {
	base
	Logical axis.Logical
	Value   any
}

// Q24_8 is a convenience accessor for pressure/tilt axis values.
func (a Axis) Q24_8() (fixed.Q24_8, bool) {
	v, ok := a.Value.(fixed.Q24_8)
	return v, ok
}

// Button carries a single button press/release transition.
type Button struct {
	base
	Code  uint16
	State ButtonState
	Pad   bool // pad button if true, stylus button if false
}

// Frame terminates a flush that emitted at least one other event
// (SPEC_FULL.md, resolving spec.md §9's open question).
type Frame struct{ base }
