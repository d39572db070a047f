package profile

import (
	"testing"

	"github.com/tabletd/tabletd/internal/evdev"
)

func TestParseDefaults(t *testing.T) {
	p, err := Parse([]byte(``))
	if err != nil {
		t.Fatalf("Parse(empty): %v", err)
	}
	if p.PadBase != evdev.BTN_MISC {
		t.Errorf("PadBase = %#x, want BTN_MISC", p.PadBase)
	}
	if p.AxisOverride != nil {
		t.Errorf("AxisOverride = %v, want nil", p.AxisOverride)
	}
}

func TestParseAxisOverride(t *testing.T) {
	p, err := Parse([]byte("axes:\n  pressure: distance\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.AxisOverride["pressure"] != evdev.ABS_DISTANCE {
		t.Errorf("AxisOverride[pressure] = %#x, want ABS_DISTANCE", p.AxisOverride["pressure"])
	}
}

func TestParseUnknownAxisNameRejected(t *testing.T) {
	if _, err := Parse([]byte("axes:\n  bogus: x\n")); err == nil {
		t.Fatal("Parse with unknown axis name should fail")
	}
}

func TestParseUnknownPadBaseRejected(t *testing.T) {
	if _, err := Parse([]byte("pad_base: BTN_WEIRD\n")); err == nil {
		t.Fatal("Parse with unrecognized pad_base should fail")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("not: [valid: yaml")); err == nil {
		t.Fatal("Parse with malformed YAML should fail")
	}
}
