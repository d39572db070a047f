package sink

import (
	"testing"

	"github.com/tabletd/tabletd/internal/axis"
	"github.com/tabletd/tabletd/internal/dispatch"
	"github.com/tabletd/tabletd/internal/fixed"
	"github.com/tabletd/tabletd/internal/tool"
)

func TestToEnvelopeProximityIn(t *testing.T) {
	e := dispatch.ProximityIn{Type: tool.PEN, Serial: 0xA1}
	env := toEnvelope("dev0", e)

	if env.Type != "proximity_in" || env.ToolType != "PEN" || env.ToolSerial != 0xA1 {
		t.Errorf("envelope = %+v, want proximity_in/PEN/0xA1", env)
	}
}

func TestToEnvelopeAxisFixedPoint(t *testing.T) {
	e := dispatch.Axis{Logical: axis.Pressure, Value: fixed.FromFloat64(0.5)}
	env := toEnvelope("dev0", e)

	if env.Type != "axis" || env.Axis != "PRESSURE" {
		t.Errorf("envelope = %+v, want axis/PRESSURE", env)
	}
	if env.Value < 0.49 || env.Value > 0.51 {
		t.Errorf("envelope.Value = %v, want ~0.5", env.Value)
	}
}

func TestToEnvelopeButton(t *testing.T) {
	e := dispatch.Button{Code: 0x14b, State: dispatch.Pressed, Pad: false}
	env := toEnvelope("dev0", e)

	if env.Type != "button" || env.State != "PRESSED" || env.ButtonPad {
		t.Errorf("envelope = %+v, want button/PRESSED/pad=false", env)
	}
}
