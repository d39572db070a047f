package evdev

// Linux input event types recognized by the dispatcher (spec.md §6.1).
const (
	EV_SYN uint16 = 0x00
	EV_KEY uint16 = 0x01
	EV_ABS uint16 = 0x03
	EV_MSC uint16 = 0x04
)

// SYN codes.
const (
	SYN_REPORT uint16 = 0x00
)

// ABS axis codes. Position/pressure/distance/tilt are the axes the
// dispatcher understands; the RX/RY/RZ/WHEEL/THROTTLE codes are reserved —
// advertised devices may report them, the Axis Registry records them as
// known-but-unmapped rather than unknown (SPEC_FULL.md §11).
const (
	ABS_X        uint16 = 0x00
	ABS_Y        uint16 = 0x01
	ABS_Z        uint16 = 0x02
	ABS_RX       uint16 = 0x03
	ABS_RY       uint16 = 0x04
	ABS_RZ       uint16 = 0x05
	ABS_THROTTLE uint16 = 0x06
	ABS_RUDDER   uint16 = 0x07
	ABS_WHEEL    uint16 = 0x08
	ABS_PRESSURE uint16 = 0x18
	ABS_DISTANCE uint16 = 0x19
	ABS_TILT_X   uint16 = 0x1a
	ABS_TILT_Y   uint16 = 0x1b

	ABS_MAX uint16 = 0x3f
	ABS_CNT        = ABS_MAX + 1
)

// EV_KEY tool codes (spec.md §6.1): one BTN_TOOL_* per tool identity.
const (
	BTN_TOOL_PEN      uint16 = 0x140
	BTN_TOOL_RUBBER   uint16 = 0x141
	BTN_TOOL_BRUSH    uint16 = 0x142
	BTN_TOOL_PENCIL   uint16 = 0x143
	BTN_TOOL_AIRBRUSH uint16 = 0x144
	BTN_TOOL_FINGER   uint16 = 0x145
	BTN_TOOL_MOUSE    uint16 = 0x146
	BTN_TOOL_LENS     uint16 = 0x147
)

// EV_KEY contact / stylus button codes.
const (
	BTN_TOUCH   uint16 = 0x14a
	BTN_STYLUS  uint16 = 0x14b
	BTN_STYLUS2 uint16 = 0x14c
)

// EV_KEY pad button range: [BTN_MISC, BTN_TASK] maps to pad buttons 0..N.
const (
	BTN_MISC uint16 = 0x100
	BTN_0    uint16 = 0x100
	BTN_TASK uint16 = 0x117
)

// EV_MSC codes.
const (
	MSC_SERIAL uint16 = 0x00
)

// KEY_MAX / KEY_CNT bound the EVIOCGBIT(EV_KEY, ...) bitmap size.
const (
	KEY_MAX uint16 = 0x2ff
	KEY_CNT        = KEY_MAX + 1
)

// IsToolCode reports whether code is one of the BTN_TOOL_* identity codes.
func IsToolCode(code uint16) bool {
	return code >= BTN_TOOL_PEN && code <= BTN_TOOL_LENS
}

// IsPadCode reports whether code falls in the pad button range.
func IsPadCode(code uint16) bool {
	return code >= BTN_MISC && code <= BTN_TASK
}

// IsStylusButtonCode reports whether code is a stylus side-button code.
func IsStylusButtonCode(code uint16) bool {
	return code == BTN_STYLUS || code == BTN_STYLUS2
}
