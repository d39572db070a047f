package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tabletd/tabletd/internal/evdev"
	"github.com/tabletd/tabletd/internal/source"
)

// listDevices prints every /proc/bus/input/devices entry plus, for each one
// that has a usable /dev/input/eventN handler, its advertised axis
// min/max/resolution — an extension of the teacher's raw -dump-events, which
// only ever showed type/code/value with no axis metadata.
func listDevices() {
	for _, d := range source.ListProcInputDevices() {
		fmt.Printf("name=%q handlers=%v\n", d.Name, d.Handlers)

		path := eventPathFromHandlers(d.Handlers)
		if path == "" {
			continue
		}
		caps, err := source.Probe(path)
		if err != nil {
			fmt.Printf("  (probe failed: %v)\n", err)
			continue
		}
		for _, code := range []uint16{evdev.ABS_X, evdev.ABS_Y, evdev.ABS_PRESSURE, evdev.ABS_DISTANCE, evdev.ABS_TILT_X, evdev.ABS_TILT_Y} {
			info, ok := caps.AxisInfo[code]
			if !ok {
				continue
			}
			fmt.Printf("  %-10s min=%-6d max=%-6d resolution=%d\n", axisCodeName(code), info.Min, info.Max, info.Resolution)
		}
	}
}

func eventPathFromHandlers(handlers []string) string {
	for _, h := range handlers {
		if strings.HasPrefix(h, "event") {
			return filepath.Join("/dev/input", h)
		}
	}
	return ""
}

func axisCodeName(code uint16) string {
	switch code {
	case evdev.ABS_X:
		return "X"
	case evdev.ABS_Y:
		return "Y"
	case evdev.ABS_PRESSURE:
		return "PRESSURE"
	case evdev.ABS_DISTANCE:
		return "DISTANCE"
	case evdev.ABS_TILT_X:
		return "TILT_X"
	case evdev.ABS_TILT_Y:
		return "TILT_Y"
	default:
		return "UNKNOWN"
	}
}
