package dispatch

import (
	"testing"
	"time"

	"github.com/tabletd/tabletd/internal/axis"
	"github.com/tabletd/tabletd/internal/evdev"
	"github.com/tabletd/tabletd/internal/tool"
)

// recordingSink collects every emitted event in order, for assertion against
// the literal scenarios spec.md §8 describes.
type recordingSink struct {
	events []Event
}

func (s *recordingSink) Emit(e Event) { s.events = append(s.events, e) }

func tabletAxes(t *testing.T) *axis.Registry {
	t.Helper()
	r, err := axis.New(map[uint16]evdev.AbsInfo{
		evdev.ABS_X:        {Min: 0, Max: 32767},
		evdev.ABS_Y:        {Min: 0, Max: 32767},
		evdev.ABS_PRESSURE: {Min: 0, Max: 1023},
		evdev.ABS_DISTANCE: {Min: 0, Max: 63},
	})
	if err != nil {
		t.Fatalf("axis.New: %v", err)
	}
	return r
}

func feed(d *Device, events []evdev.RawEvent) {
	for _, ev := range events {
		d.Process(ev)
	}
}

func syn() evdev.RawEvent { return evdev.RawEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT} }

// S1 — proximity in with position and pressure.
func TestScenarioS1ProximityInWithPositionAndPressure(t *testing.T) {
	sink := &recordingSink{}
	d := New(tabletAxes(t), sink, nil)

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 1},
		{Type: evdev.EV_MSC, Code: evdev.MSC_SERIAL, Value: 0xA1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_X, Value: 1000},
		{Type: evdev.EV_ABS, Code: evdev.ABS_Y, Value: 2000},
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOUCH, Value: 1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_PRESSURE, Value: 512},
		syn(),
	})

	var kinds []string
	for _, e := range sink.events {
		switch v := e.(type) {
		case ProximityIn:
			kinds = append(kinds, "proximity_in")
			if v.Type != tool.PEN || v.Serial != 0xA1 {
				t.Errorf("ProximityIn = %+v, want PEN/0xA1", v)
			}
		case Button:
			kinds = append(kinds, "button")
			if v.Code != evdev.BTN_TOUCH || v.State != Pressed {
				t.Errorf("Button = %+v, want BTN_TOUCH PRESSED", v)
			}
		case MotionAbsolute:
			kinds = append(kinds, "motion")
			if v.X != 1000 || v.Y != 2000 {
				t.Errorf("MotionAbsolute = %+v, want (1000, 2000)", v)
			}
		case Axis:
			kinds = append(kinds, "axis:"+v.Logical.String())
		case Frame:
			kinds = append(kinds, "frame")
		}
	}

	want := []string{"proximity_in", "button", "motion", "axis:PRESSURE", "frame"}
	if len(kinds) != len(want) {
		t.Fatalf("emitted %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("emitted[%d] = %q, want %q (full: %v)", i, kinds[i], want[i], kinds)
		}
	}
}

// S2 — distance/pressure mutual exclusion during active contact.
func TestScenarioS2DistancePressureMutualExclusion(t *testing.T) {
	sink := &recordingSink{}
	d := New(tabletAxes(t), sink, nil)

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_X, Value: 1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_Y, Value: 1},
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOUCH, Value: 1},
		syn(),
	})
	sink.events = nil

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_ABS, Code: evdev.ABS_DISTANCE, Value: 10},
		{Type: evdev.EV_ABS, Code: evdev.ABS_PRESSURE, Value: 200},
		syn(),
	})

	for _, e := range sink.events {
		if a, ok := e.(Axis); ok && a.Logical == axis.Distance {
			t.Fatalf("unexpected AXIS(DISTANCE) emitted alongside a nonzero pressure change: %v", sink.events)
		}
	}
}

// S3 — pressure suppressed entirely without contact.
func TestScenarioS3PressureSuppressionWithoutContact(t *testing.T) {
	sink := &recordingSink{}
	d := New(tabletAxes(t), sink, nil)

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_X, Value: 1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_Y, Value: 1},
		syn(),
	})
	sink.events = nil

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_ABS, Code: evdev.ABS_PRESSURE, Value: 50},
		syn(),
	})

	for _, e := range sink.events {
		if _, ok := e.(Axis); ok {
			t.Fatalf("no Axis event should be emitted without contact, got %v", sink.events)
		}
	}
}

// S4 — proximity-out synthesizes a release for held stylus buttons, ordered
// before the tool exit.
func TestScenarioS4ProximityOutReleasesHeldButtons(t *testing.T) {
	sink := &recordingSink{}
	d := New(tabletAxes(t), sink, nil)

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_X, Value: 1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_Y, Value: 1},
		{Type: evdev.EV_KEY, Code: evdev.BTN_STYLUS, Value: 1},
		syn(),
	})
	sink.events = nil

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 0},
		syn(),
	})

	if len(sink.events) < 2 {
		t.Fatalf("got %d events, want at least a button release and a proximity-out", len(sink.events))
	}
	btn, ok := sink.events[0].(Button)
	if !ok || btn.Code != evdev.BTN_STYLUS || btn.State != Released {
		t.Fatalf("events[0] = %+v, want BTN_STYLUS RELEASED", sink.events[0])
	}
	if _, ok := sink.events[len(sink.events)-2].(ProximityOut); !ok {
		t.Fatalf("second-to-last event = %+v, want ProximityOut (Frame terminator is last)", sink.events[len(sink.events)-2])
	}
}

// S5 — out-of-range axis values clamp to the advertised range.
func TestScenarioS5Clamping(t *testing.T) {
	sink := &recordingSink{}
	d := New(tabletAxes(t), sink, nil)

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_X, Value: 1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_Y, Value: 1},
		syn(),
	})
	sink.events = nil

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_ABS, Code: evdev.ABS_X, Value: 99999},
		syn(),
	})

	found := false
	for _, e := range sink.events {
		if m, ok := e.(MotionAbsolute); ok {
			found = true
			if m.X != 32767 {
				t.Errorf("MotionAbsolute.X = %d, want 32767 (clamped)", m.X)
			}
		}
	}
	if !found {
		t.Fatal("no MotionAbsolute emitted")
	}
}

// S6 — two proximity cycles with identical (type, serial) resolve to the
// same tool identity.
func TestScenarioS6ToolReIdentification(t *testing.T) {
	sink := &recordingSink{}
	d := New(tabletAxes(t), sink, nil)

	cycle := func() tool.Ref {
		feed(d, []evdev.RawEvent{
			{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 1},
			{Type: evdev.EV_MSC, Code: evdev.MSC_SERIAL, Value: 0xA1},
			syn(),
		})
		var ref tool.Ref
		for _, e := range sink.events {
			if p, ok := e.(ProximityIn); ok {
				ref = p.Tool
			}
		}
		feed(d, []evdev.RawEvent{
			{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 0},
			syn(),
		})
		return ref
	}

	first := cycle()
	sink.events = nil
	second := cycle()

	if !first.Equal(second) {
		t.Fatalf("two proximity cycles with identical (type, serial) produced different ToolRefs")
	}
}

// A tool swap (pen -> eraser) with no intervening NONE frame must release
// the outgoing tool's registry reference, not just activate the new one —
// otherwise the registry leaks a dead entry on every swap.
func TestToolSwapReleasesOutgoingTool(t *testing.T) {
	sink := &recordingSink{}
	d := New(tabletAxes(t), sink, nil)

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 1},
		{Type: evdev.EV_MSC, Code: evdev.MSC_SERIAL, Value: 1},
		syn(),
	})
	if got := d.tools.Len(); got != 1 {
		t.Fatalf("after pen enters proximity: tools.Len() = %d, want 1", got)
	}

	// Direct swap: BTN_TOOL_RUBBER arrives without a prior BTN_TOOL_PEN 0.
	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_RUBBER, Value: 1},
		{Type: evdev.EV_MSC, Code: evdev.MSC_SERIAL, Value: 2},
		syn(),
	})
	if got := d.tools.Len(); got != 1 {
		t.Fatalf("after pen->eraser swap: tools.Len() = %d, want 1 (pen must be released)", got)
	}
	active, ok := d.tools.ActiveTool()
	if !ok || active.Tool().Key.Type != tool.RUBBER {
		t.Fatalf("ActiveTool() = (%+v, %v), want the rubber tool", active, ok)
	}

	// Same-frame swap via explicit disable+enable within one SYN_REPORT.
	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_RUBBER, Value: 0},
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 1},
		{Type: evdev.EV_MSC, Code: evdev.MSC_SERIAL, Value: 3},
		syn(),
	})
	if got := d.tools.Len(); got != 1 {
		t.Fatalf("after same-frame eraser->pen swap: tools.Len() = %d, want 1 (eraser must be released)", got)
	}
}

// Invariant 1: previous == current snapshot immediately after every flush.
func TestInvariantPreviousEqualsCurrentAfterFlush(t *testing.T) {
	sink := &recordingSink{}
	d := New(tabletAxes(t), sink, nil)

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_KEY, Code: evdev.BTN_TOOL_PEN, Value: 1},
		{Type: evdev.EV_ABS, Code: evdev.ABS_X, Value: 42},
		{Type: evdev.EV_ABS, Code: evdev.ABS_Y, Value: 43},
		syn(),
	})

	if d.state.Current.X != d.state.Previous.X || d.state.Current.Y != d.state.Previous.Y {
		t.Fatal("Current and Previous diverge immediately after flush")
	}
	if d.state.Current.ToolType != d.state.Previous.ToolType {
		t.Fatal("Current.ToolType != Previous.ToolType immediately after flush")
	}
}

// Invariant 2: no Axis event is ever emitted while no tool is active.
func TestInvariantNoAxisEventsWithoutActiveTool(t *testing.T) {
	sink := &recordingSink{}
	d := New(tabletAxes(t), sink, nil)

	feed(d, []evdev.RawEvent{
		{Type: evdev.EV_ABS, Code: evdev.ABS_PRESSURE, Value: 100},
		syn(),
	})

	for _, e := range sink.events {
		if _, ok := e.(Axis); ok {
			t.Fatalf("Axis event emitted with no active tool: %v", sink.events)
		}
	}
}

func TestUnknownAxisCodeIsDroppedNotPanicking(t *testing.T) {
	sink := &recordingSink{}
	d := New(tabletAxes(t), sink, nil)
	d.Process(evdev.RawEvent{Type: evdev.EV_ABS, Code: 0x3e, Value: 7, Time: time.Second})
	d.Process(syn())
	// No panic, no spurious Axis event for the unmapped code.
	for _, e := range sink.events {
		if _, ok := e.(Axis); ok {
			t.Fatalf("Axis event emitted for an unmapped ABS code: %v", sink.events)
		}
	}
}
