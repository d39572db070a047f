// Package axis implements the Axis Registry (C1) and Normalizer (C2) from
// spec.md §4.1/§4.2: mapping raw ABS_* codes to logical axis identifiers,
// storing per-axis device metadata, and converting raw integer samples into
// logical values.
package axis

import (
	"errors"
	"fmt"

	"github.com/tabletd/tabletd/internal/evdev"
	"github.com/tabletd/tabletd/internal/fixed"
)

// Logical is a logical axis identifier (spec.md §4.1).
type Logical uint8

const (
	X Logical = iota
	Y
	Distance
	Pressure
	TiltH
	TiltV

	count
)

func (l Logical) String() string {
	switch l {
	case X:
		return "X"
	case Y:
		return "Y"
	case Distance:
		return "DISTANCE"
	case Pressure:
		return "PRESSURE"
	case TiltH:
		return "TILT_H"
	case TiltV:
		return "TILT_V"
	default:
		return "UNKNOWN"
	}
}

// ErrUnknownAxis is returned by Descriptor when the raw code was not
// advertised by the device (spec.md §7).
var ErrUnknownAxis = errors.New("axis: unknown axis code")

// ErrMissingMetadata is returned by New when an indispensable axis (X or Y)
// has no absinfo — the one fatal construction condition (spec.md §7).
var ErrMissingMetadata = errors.New("axis: missing metadata for indispensable axis")

// codeToLogical is the raw-code → logical-axis mapping. Codes not present
// here but present in reservedCodes are "known but unmapped" (SPEC_FULL.md
// §11): advertised, harmless, never routed to a logical axis.
var codeToLogical = map[uint16]Logical{
	evdev.ABS_X:        X,
	evdev.ABS_Y:        Y,
	evdev.ABS_DISTANCE: Distance,
	evdev.ABS_PRESSURE: Pressure,
	evdev.ABS_TILT_X:   TiltH,
	evdev.ABS_TILT_Y:   TiltV,
}

var reservedCodes = map[uint16]bool{
	evdev.ABS_RX:       true,
	evdev.ABS_RY:       true,
	evdev.ABS_RZ:       true,
	evdev.ABS_WHEEL:    true,
	evdev.ABS_THROTTLE: true,
}

// Descriptor is the immutable-after-construction per-axis metadata plus the
// mutable last-observed-value state (spec.md §3).
type Descriptor struct {
	RawCode    uint16
	Logical    Logical
	Min, Max   int32
	Resolution int32

	lastValue int32
	hasValue  bool
}

// LastValue returns the most recently staged raw value and whether any
// value has been staged yet.
func (d *Descriptor) LastValue() (int32, bool) { return d.lastValue, d.hasValue }

// Registry is the read-after-construction Axis Registry for one device.
type Registry struct {
	descriptors map[uint16]*Descriptor
	reserved    map[uint16]bool
	advertised  []Logical // ascending logical order, excludes X/Y
}

// New builds a Registry from the device's advertised ABS capability set
// (raw code → AbsInfo, as queried via EVIOCGABS for every code the device's
// EV_ABS bitmap reports). Returns ErrMissingMetadata if absInfo has no
// entry for ABS_X or ABS_Y — the dispatcher cannot run without position
// (spec.md §7).
func New(absInfo map[uint16]evdev.AbsInfo) (*Registry, error) {
	r := &Registry{
		descriptors: make(map[uint16]*Descriptor),
		reserved:    make(map[uint16]bool),
	}

	for code := range reservedCodes {
		if _, ok := absInfo[code]; ok {
			r.reserved[code] = true
		}
	}

	for code, logical := range codeToLogical {
		info, ok := absInfo[code]
		if !ok {
			if logical == X || logical == Y {
				return nil, fmt.Errorf("%w: code 0x%x (%s)", ErrMissingMetadata, code, logical)
			}
			continue
		}
		r.descriptors[code] = &Descriptor{
			RawCode:    code,
			Logical:    logical,
			Min:        info.Min,
			Max:        info.Max,
			Resolution: info.Resolution,
		}
	}

	if _, ok := r.descriptors[evdev.ABS_X]; !ok {
		return nil, fmt.Errorf("%w: code 0x%x (X)", ErrMissingMetadata, evdev.ABS_X)
	}
	if _, ok := r.descriptors[evdev.ABS_Y]; !ok {
		return nil, fmt.Errorf("%w: code 0x%x (Y)", ErrMissingMetadata, evdev.ABS_Y)
	}

	var logicals []Logical
	for _, d := range r.descriptors {
		if d.Logical == X || d.Logical == Y {
			continue
		}
		logicals = append(logicals, d.Logical)
	}
	// Small fixed set; insertion sort keeps this dependency-free and cheap.
	for i := 1; i < len(logicals); i++ {
		for j := i; j > 0 && logicals[j-1] > logicals[j]; j-- {
			logicals[j-1], logicals[j] = logicals[j], logicals[j-1]
		}
	}
	r.advertised = logicals

	return r, nil
}

// LogicalFor returns the logical axis for raw, if any. Reserved-but-unmapped
// codes and codes the device never advertised both return (_, false); the
// caller (Frame State / Sanitizer) doesn't need to distinguish them — neither
// is routed to a logical axis.
func (r *Registry) LogicalFor(raw uint16) (Logical, bool) {
	if d, ok := r.descriptors[raw]; ok {
		return d.Logical, true
	}
	return 0, false
}

// IsReserved reports whether raw is a known-but-unmapped axis code the
// device advertised (SPEC_FULL.md §11) — distinct from a genuinely unknown
// code, which should still produce a diagnostic.
func (r *Registry) IsReserved(raw uint16) bool {
	return r.reserved[raw]
}

// Descriptor looks up the descriptor for raw, failing with ErrUnknownAxis if
// the device never advertised it.
func (r *Registry) Descriptor(raw uint16) (*Descriptor, error) {
	d, ok := r.descriptors[raw]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnknownAxis, raw)
	}
	return d, nil
}

// Advertised returns the logical axes (excluding X/Y) the device advertises,
// in ascending logical-axis order — the fixed emission order spec.md §4.6
// step 3c requires.
func (r *Registry) Advertised() []Logical {
	return r.advertised
}

// Clamp restricts raw to [d.Min, d.Max].
func (d *Descriptor) Clamp(raw int32) int32 {
	if raw < d.Min {
		return d.Min
	}
	if raw > d.Max {
		return d.Max
	}
	return raw
}

// Stage clamps raw, compares it against the descriptor's last value, records
// the new value, and reports whether the value actually changed (spec.md
// §4.1: "a value equal to the stored last_value is a no-op").
func (d *Descriptor) Stage(raw int32) (clamped int32, changed bool) {
	clamped = d.Clamp(raw)
	changed = !d.hasValue || clamped != d.lastValue
	d.lastValue = clamped
	d.hasValue = true
	return clamped, changed
}

// Normalize converts a clamped raw sample into its logical representation
// per spec.md §4.2.
func Normalize(l Logical, raw int32, d *Descriptor) any {
	switch l {
	case Pressure:
		return NormalizePressure(raw, d)
	case TiltH, TiltV:
		return NormalizeTilt(raw, d)
	case Distance:
		return NormalizeDistance(raw, d)
	default:
		return NormalizePosition(raw, d)
	}
}

// NormalizePressure maps raw onto fixed.Q24_8 in [0, 1]: (raw-min)/(max-min).
func NormalizePressure(raw int32, d *Descriptor) fixed.Q24_8 {
	rng := float64(d.Max - d.Min)
	if rng <= 0 {
		return 0
	}
	v := float64(raw-d.Min) / rng
	return fixed.Clamp(fixed.FromFloat64(v), fixed.FromFloat64(0), fixed.FromFloat64(1))
}

// NormalizeTilt maps raw onto fixed.Q24_8 in [-1, 1], symmetric around the
// midpoint: max maps to +1, min maps to -1 exactly, even for an asymmetric
// range (spec.md §4.2).
func NormalizeTilt(raw int32, d *Descriptor) fixed.Q24_8 {
	mid := float64(d.Max+d.Min) / 2
	half := float64(d.Max-d.Min) / 2
	if half <= 0 {
		return 0
	}
	v := (float64(raw) - mid) / half
	return fixed.Clamp(fixed.FromFloat64(v), fixed.FromFloat64(-1), fixed.FromFloat64(1))
}

// NormalizePosition returns raw unchanged, in device units; consumers apply
// display mapping.
func NormalizePosition(raw int32, _ *Descriptor) int32 { return raw }

// NormalizeDistance returns raw unchanged, in device units.
func NormalizeDistance(raw int32, _ *Descriptor) int32 { return raw }
