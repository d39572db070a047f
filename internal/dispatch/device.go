// Package dispatch implements the Dispatcher (C6) from spec.md §4.6: the
// top-level per-event state machine that classifies raw tuples, accumulates
// them into Frame State, and on a synchronization marker flushes a frame in
// the prescribed emission order.
package dispatch

import (
	"log/slog"
	"time"

	"github.com/tabletd/tabletd/internal/axis"
	"github.com/tabletd/tabletd/internal/evdev"
	"github.com/tabletd/tabletd/internal/frame"
	"github.com/tabletd/tabletd/internal/sanitize"
	"github.com/tabletd/tabletd/internal/tool"
)

// Sink receives emitted events. Emit must not block — a Sink that needs to
// do I/O queues internally (spec.md §5, §6.2).
type Sink interface {
	Emit(Event)
}

// toolCodeType maps a BTN_TOOL_* code to its tool.Type.
var toolCodeType = map[uint16]tool.Type{
	evdev.BTN_TOOL_PEN:      tool.PEN,
	evdev.BTN_TOOL_RUBBER:   tool.RUBBER,
	evdev.BTN_TOOL_BRUSH:    tool.BRUSH,
	evdev.BTN_TOOL_PENCIL:   tool.PENCIL,
	evdev.BTN_TOOL_AIRBRUSH: tool.AIRBRUSH,
	evdev.BTN_TOOL_FINGER:   tool.FINGER,
	evdev.BTN_TOOL_MOUSE:    tool.MOUSE,
	evdev.BTN_TOOL_LENS:     tool.LENS,
}

// Device is a single device's dispatcher: one instance per physical input
// device, independent of every other Device (spec.md §5 — no cross-device
// calls, no shared state).
type Device struct {
	axes  *axis.Registry
	tools *tool.Registry
	state *frame.State
	sink  Sink
	log   *slog.Logger

	warnedUnknownAxis map[uint16]bool
}

// New constructs a Device dispatcher. axes must already be seeded from the
// device's capability metadata (internal/axis.New); a nil logger falls back
// to slog.Default().
func New(axes *axis.Registry, sink Sink, log *slog.Logger) *Device {
	if log == nil {
		log = slog.Default()
	}
	return &Device{
		axes:              axes,
		tools:             tool.NewRegistry(),
		state:             frame.New(),
		sink:              sink,
		log:               log,
		warnedUnknownAxis: make(map[uint16]bool),
	}
}

// Process classifies and accumulates one raw event tuple, flushing a frame
// on EV_SYN/SYN_REPORT (spec.md §4.6's event classification table).
func (d *Device) Process(ev evdev.RawEvent) {
	switch ev.Type {
	case evdev.EV_ABS:
		d.processAbs(ev)
	case evdev.EV_KEY:
		d.processKey(ev)
	case evdev.EV_MSC:
		d.processMisc(ev)
	case evdev.EV_SYN:
		if ev.Code == evdev.SYN_REPORT {
			d.flush(ev.Time)
		}
	default:
		d.log.Debug("dispatch: ignoring unrecognized event type", "type", ev.Type)
	}
}

func (d *Device) processAbs(ev evdev.RawEvent) {
	logical, ok := d.axes.LogicalFor(ev.Code)
	if !ok {
		if !d.axes.IsReserved(ev.Code) && !d.warnedUnknownAxis[ev.Code] {
			d.warnedUnknownAxis[ev.Code] = true
			d.log.Warn("dispatch: unknown ABS code, dropping", "code", ev.Code, "err", ErrUnknownAxis)
		}
		return
	}

	// LogicalFor and Descriptor share the same backing map (internal/axis),
	// so a successful LogicalFor lookup always has a Descriptor: a code the
	// device advertised but never got absinfo for (spec.md's
	// MissingMetadata case) is never added to either, and so is caught by
	// the !ok branch above instead of surfacing here.
	desc, _ := d.axes.Descriptor(ev.Code)
	if ev.Value < desc.Min || ev.Value > desc.Max {
		d.log.Debug("dispatch: axis value out of range, clamping", "code", ev.Code, "value", ev.Value, "err", ErrOutOfRange)
	}

	if logical == axis.X || logical == axis.Y {
		d.state.StagePosition(logical, desc.Clamp(ev.Value))
		return
	}

	d.state.StageAxisValue(desc, ev.Value)
}

func (d *Device) processKey(ev evdev.RawEvent) {
	enabled := ev.Value != 0

	switch {
	case evdev.IsToolCode(ev.Code):
		d.processToolKey(ev.Code, enabled)
	case ev.Code == evdev.BTN_TOUCH:
		d.state.StageContact(enabled)
	case evdev.IsStylusButtonCode(ev.Code):
		d.state.StageButton(ev.Code, enabled)
	default:
		if !d.state.StageButton(ev.Code, enabled) {
			d.log.Debug("dispatch: unknown button code", "code", ev.Code, "err", ErrUnknownButton)
		}
	}
}

// processToolKey only updates Current.ToolType/Interacted (spec.md §4.4's
// stage_tool_type). It does NOT touch the Tool Registry: MSC_SERIAL usually
// arrives in the same frame after the BTN_TOOL_* code, so the registry
// Acquire/Release (which needs the finalized (type, serial) key) happens at
// flush time instead, once the whole frame's state is known.
func (d *Device) processToolKey(code uint16, enabled bool) {
	t := toolCodeType[code]

	if enabled && t == d.state.Current.ToolType {
		d.log.Debug("dispatch: redundant tool-enable for active tool", "tool", t, "err", ErrInvalidTransition)
		return
	}
	if !enabled && t != d.state.Current.ToolType {
		d.log.Debug("dispatch: disable for non-active tool", "tool", t, "err", ErrInvalidTransition)
		return
	}
	d.state.StageToolType(t, enabled, tool.Ref{})
}

func (d *Device) processMisc(ev evdev.RawEvent) {
	if ev.Code == evdev.MSC_SERIAL {
		d.state.StageSerial(uint32(ev.Value))
		return
	}
	d.log.Debug("dispatch: unhandled MSC code", "code", ev.Code)
}

// resolveToolTransition runs at flush time, once MSC_SERIAL (if any) for
// this frame has already been staged. It acquires/releases the Tool
// Registry entry for the finalized (type, serial) key and installs the
// resulting Ref onto Current, so step 1/5 emission and the next frame's
// Previous both carry a correct ToolRef (spec.md §8 property 8).
func (d *Device) resolveToolTransition() {
	cur, prev := &d.state.Current, &d.state.Previous
	if cur.ToolType == prev.ToolType {
		// A disable and re-enable of the same tool within one frame leaves
		// the type unchanged but zeroes Current.ToolRef; keep the held ref.
		cur.ToolRef = prev.ToolRef
		return
	}

	// The tool changed — release whatever was active going into this frame
	// before acquiring/activating the new one, whether this is a release to
	// NONE or a direct IN→IN swap (e.g. pen→eraser via BTN_TOOL_RUBBER with
	// no intervening NONE frame). Otherwise the outgoing tool's refcount
	// never drops to zero and the registry leaks it.
	if prev.ToolRef.Valid() {
		d.tools.Release(prev.ToolRef)
	}

	if cur.ToolType != tool.NONE {
		ref := d.tools.Acquire(tool.Key{Type: cur.ToolType, Serial: cur.ToolSerial})
		d.tools.SetActive(ref)
		cur.ToolRef = ref
		return
	}

	// cur.ToolType == NONE: nothing left to activate.
	d.tools.SetActive(tool.Ref{})
	cur.ToolRef = tool.Ref{}

	// A stylus that has left proximity cannot still be holding its side
	// buttons down — force the release so step 4 reports it instead of
	// leaving a dangling press no further hardware event will ever clear
	// (spec.md §8 scenario S4). Pad buttons are independent hardware and
	// are left untouched.
	cur.StylusButtons = 0
}

// flush executes the six-step ordered emission spec.md §4.6 mandates.
func (d *Device) flush(rawTime time.Duration) {
	t := epoch.Add(rawTime)
	emitted := false
	emit := func(e Event) {
		d.sink.Emit(e)
		emitted = true
	}

	d.resolveToolTransition()
	cur, prev := &d.state.Current, &d.state.Previous

	// Step 1: pre-flush tool entry — enter before anything.
	toolChanged := cur.ToolType != prev.ToolType
	if toolChanged && cur.ToolType != tool.NONE {
		emit(ProximityIn{base: base{t}, Tool: cur.ToolRef, Type: cur.ToolType, Serial: cur.ToolSerial})
	}

	// Step 2: pre-flush button presses, pad then stylus, ascending code.
	d.emitButtonDeltas(emit, t, frame.PressedDelta(cur.PadButtons, prev.PadButtons), true, Pressed)
	d.emitButtonDeltas(emit, t, frame.PressedDelta(cur.StylusButtons, prev.StylusButtons), false, Pressed)

	// Step 3: axis emission, only while a tool is active.
	if cur.ToolType != tool.NONE {
		sanitize.Run(d.state)

		if d.state.Status.Has(frame.AxesUpdated) {
			emit(MotionAbsolute{base: base{t}, X: cur.X, Y: cur.Y})
		}

		for _, logical := range d.axes.Advertised() {
			code := rawCodeFor(logical)
			if !d.state.Changed.Test(code) {
				continue
			}
			desc, err := d.axes.Descriptor(code)
			if err != nil {
				continue
			}
			value := axis.Normalize(logical, cur.AxisRaw[code], desc)
			emit(Axis{base: base{t}, Logical: logical, Value: value})
			d.state.Changed.Clear(code)
		}
	}

	// Step 4: post-flush button releases, same ordering as step 2.
	d.emitButtonDeltas(emit, t, frame.ReleasedDelta(cur.PadButtons, prev.PadButtons), true, Released)
	d.emitButtonDeltas(emit, t, frame.ReleasedDelta(cur.StylusButtons, prev.StylusButtons), false, Released)

	// Step 5: post-flush tool exit — release before leave.
	if toolChanged && cur.ToolType == tool.NONE {
		emit(ProximityOut{base: base{t}})
	}

	if emitted {
		d.sink.Emit(Frame{base: base{t}})
	}

	// Step 6: commit.
	d.state.Commit()
}

func (d *Device) emitButtonDeltas(emit func(Event), t time.Time, delta frame.ButtonMask, pad bool, state ButtonState) {
	codeBase := evdev.BTN_MISC
	if !pad {
		codeBase = evdev.BTN_TOUCH
	}
	for bit := uint16(0); bit < 32; bit++ {
		if delta&(1<<bit) == 0 {
			continue
		}
		emit(Button{base: base{t}, Code: codeBase + bit, State: state, Pad: pad})
	}
}

// rawCodeFor inverts the logical-axis mapping for the four axes the
// dispatcher ever emits as Axis events (X/Y go through MotionAbsolute
// instead, so they never reach here).
func rawCodeFor(l axis.Logical) uint16 {
	switch l {
	case axis.Distance:
		return evdev.ABS_DISTANCE
	case axis.Pressure:
		return evdev.ABS_PRESSURE
	case axis.TiltH:
		return evdev.ABS_TILT_X
	case axis.TiltV:
		return evdev.ABS_TILT_Y
	default:
		return 0xffff
	}
}

// epoch is the Unix epoch; raw timestamps are the kernel timeval as an
// offset from it, so events carry epoch.Add(rawTime) as their wall-clock
// approximation. Callers that need real wall-clock time should read
// time.Now() at the Device Source layer instead (out of scope here per
// spec.md §1).
var epoch = time.Unix(0, 0)

// Close releases every tool still referenced and drops frame state,
// without emitting further events (spec.md §5 cancellation semantics).
func (d *Device) Close() {
	if ref, ok := d.tools.ActiveTool(); ok {
		d.tools.Release(ref)
	}
	d.state = frame.New()
}
