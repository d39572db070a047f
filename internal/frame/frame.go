// Package frame implements Frame State (C4) from spec.md §4.4: the
// current/previous snapshot pair, the per-frame change mask, and the
// mutators the Dispatcher calls while classifying events within one open
// frame.
package frame

import (
	"github.com/tabletd/tabletd/internal/axis"
	"github.com/tabletd/tabletd/internal/evdev"
	"github.com/tabletd/tabletd/internal/tool"
)

// ButtonMask is a fixed-width bitset over button codes, explicit rather than
// raw integer arithmetic (spec.md §9). Width is bounded by the pad and
// stylus ranges (≤ 32 bits each).
type ButtonMask uint32

func (m ButtonMask) test(bit uint) bool { return m&(1<<bit) != 0 }
func (m *ButtonMask) set(bit uint)      { *m |= 1 << bit }
func (m *ButtonMask) clear(bit uint)    { *m &^= 1 << bit }

// PressedDelta returns the bits set in cur but not prev — newly pressed.
func PressedDelta(cur, prev ButtonMask) ButtonMask { return cur &^ prev }

// ReleasedDelta returns the bits set in prev but not cur — newly released.
func ReleasedDelta(cur, prev ButtonMask) ButtonMask { return prev &^ cur }

// ChangeMask is a bitset over raw ABS_* codes, marking which axes were
// written in the currently open frame (spec.md §3).
type ChangeMask uint64

func (m ChangeMask) Test(code uint16) bool   { return m&(1<<uint(code)) != 0 }
func (m *ChangeMask) Set(code uint16)        { *m |= 1 << uint(code) }
func (m *ChangeMask) Clear(code uint16)      { *m &^= 1 << uint(code) }
func (m *ChangeMask) Reset()                 { *m = 0 }

const (
	padBase    = evdev.BTN_MISC
	stylusBase = evdev.BTN_TOUCH
)

// Snapshot is one frame's worth of device state (spec.md §3). Exactly two
// instances exist per device — current and previous.
type Snapshot struct {
	X, Y int32

	// AxisRaw holds the last clamped raw sample per raw ABS code, so
	// Sanitizer and emission can read "the current value of DISTANCE" etc.
	// without going back through the Axis Registry.
	AxisRaw map[uint16]int32

	StylusButtons ButtonMask
	PadButtons    ButtonMask

	ToolType   tool.Type
	ToolSerial uint32
	ToolRef    tool.Ref

	InContact bool
}

func newSnapshot() Snapshot {
	return Snapshot{AxisRaw: make(map[uint16]int32)}
}

func (s Snapshot) clone() Snapshot {
	cp := s
	cp.AxisRaw = make(map[uint16]int32, len(s.AxisRaw))
	for k, v := range s.AxisRaw {
		cp.AxisRaw[k] = v
	}
	return cp
}

// StatusFlags is the dispatcher status bitset from spec.md §3.
type StatusFlags uint8

const (
	AxesUpdated StatusFlags = 1 << iota
	StylusInContact
	Interacted
)

func (f StatusFlags) Has(bit StatusFlags) bool { return f&bit != 0 }
func (f *StatusFlags) set(bit StatusFlags)     { *f |= bit }
func (f *StatusFlags) clear(bit StatusFlags)   { *f &^= bit }

// State holds current vs previous snapshot, the open frame's change mask,
// and status flags — the complete mutable per-device state the Dispatcher
// accumulates into between synchronization markers.
type State struct {
	Current  Snapshot
	Previous Snapshot
	Changed  ChangeMask
	Status   StatusFlags
}

// New returns a zeroed State with empty current/previous snapshots.
func New() *State {
	return &State{
		Current:  newSnapshot(),
		Previous: newSnapshot(),
	}
}

// StagePosition writes to Current.X or Current.Y and sets AxesUpdated
// (spec.md §4.4).
func (s *State) StagePosition(l axis.Logical, value int32) {
	switch l {
	case axis.X:
		s.Current.X = value
	case axis.Y:
		s.Current.Y = value
	default:
		return
	}
	s.Status.set(AxesUpdated)
}

// StageAxisValue clamps raw via the Axis Registry, records it as the
// descriptor's last value, and sets Changed[rawCode] iff the clamped value
// actually differs from what was staged last (spec.md §4.4's
// stage_axis(raw_code, value)).
func (s *State) StageAxisValue(desc *axis.Descriptor, raw int32) {
	clamped, changed := desc.Stage(raw)
	s.Current.AxisRaw[desc.RawCode] = clamped
	if changed {
		s.Changed.Set(desc.RawCode)
	}
}

// StageButton toggles the appropriate bit in the stylus or pad mask.
// Unknown codes are reported via ok=false so the caller can emit a
// diagnostic; they are never staged.
func (s *State) StageButton(code uint16, pressed bool) (ok bool) {
	switch {
	case evdev.IsPadCode(code):
		bit := uint(code - padBase)
		if pressed {
			s.Current.PadButtons.set(bit)
		} else {
			s.Current.PadButtons.clear(bit)
		}
		return true
	case evdev.IsStylusButtonCode(code) || code == evdev.BTN_TOUCH:
		bit := uint(code - stylusBase)
		if pressed {
			s.Current.StylusButtons.set(bit)
		} else {
			s.Current.StylusButtons.clear(bit)
		}
		return true
	default:
		return false
	}
}

// StageToolType implements spec.md §4.4's stage_tool_type: on enable, if
// type differs from the current tool, set it and mark Interacted; on
// disable, if type matches the current tool, clear it to NONE and clear
// Interacted. ref is the acquired/released tool handle to install as the
// new active tool (or the zero Ref when disabling).
func (s *State) StageToolType(t tool.Type, enabled bool, ref tool.Ref) {
	if enabled {
		if t != s.Current.ToolType {
			s.Current.ToolType = t
			s.Current.ToolRef = ref
			s.Status.set(Interacted)
		}
		return
	}
	if t == s.Current.ToolType {
		s.Current.ToolType = tool.NONE
		s.Current.ToolRef = tool.Ref{}
		s.Status.clear(Interacted)
	}
}

// StageSerial writes Current.ToolSerial.
func (s *State) StageSerial(value uint32) {
	s.Current.ToolSerial = value
}

// StageContact updates StylusInContact and stages the BTN_TOUCH button
// (spec.md §4.4).
func (s *State) StageContact(pressed bool) {
	if pressed {
		s.Status.set(StylusInContact)
	} else {
		s.Status.clear(StylusInContact)
	}
	s.StageButton(evdev.BTN_TOUCH, pressed)
}

// Commit copies Current into Previous, clears the change mask, and clears
// AxesUpdated (spec.md §4.4). Invariant 1 ("previous ≡ current immediately
// after flush") holds by construction here.
func (s *State) Commit() {
	s.Previous = s.Current.clone()
	s.Changed.Reset()
	s.Status.clear(AxesUpdated)
}
