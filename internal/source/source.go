// Package source implements the Device Source collaborator spec.md §1 and
// §6.3 describe as an external interface: opening /dev/input/eventN nodes,
// discovering and scoring candidate devices, and building the capability
// descriptor (per-axis absinfo + key/abs bitmaps) the Axis Registry needs.
//
// Grounded on the teacher's device_select.go and linux_input.go, generalized
// from the teacher's three-axis/two-tool-code special case to the full code
// tables in internal/evdev.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tabletd/tabletd/internal/evdev"
)

// Info is one entry from /proc/bus/input/devices.
type Info struct {
	Name     string
	Handlers []string
}

// ListProcInputDevices parses /proc/bus/input/devices for display/debug
// purposes (teacher's listProcInputDevices).
func ListProcInputDevices() []Info {
	b, err := os.ReadFile("/proc/bus/input/devices")
	if err != nil {
		return nil
	}
	var out []Info
	for _, blk := range strings.Split(string(b), "\n\n") {
		info := Info{}
		for _, line := range strings.Split(blk, "\n") {
			if name, ok := strings.CutPrefix(line, "N: Name="); ok {
				info.Name = strings.Trim(name, " \"")
			}
			if h, ok := strings.CutPrefix(line, "H: Handlers="); ok {
				info.Handlers = strings.Fields(h)
			}
		}
		if info.Name != "" || len(info.Handlers) > 0 {
			out = append(out, info)
		}
	}
	return out
}

// Capabilities is the device metadata consumed at dispatcher initialization
// (spec.md §6.3): per-axis absinfo and the EV_KEY/EV_ABS capability bitmaps.
type Capabilities struct {
	AxisInfo map[uint16]evdev.AbsInfo
	Keys     evdev.Bitset
	Abs      evdev.Bitset
}

// candidateAxes and candidateToolKeys bound the ioctl probing in Probe to
// the codes the dispatcher actually understands (plus the reserved-but-
// tracked axes), instead of querying the full 0..ABS_MAX/0..KEY_MAX range.
var candidateAxes = []uint16{
	evdev.ABS_X, evdev.ABS_Y, evdev.ABS_PRESSURE, evdev.ABS_DISTANCE,
	evdev.ABS_TILT_X, evdev.ABS_TILT_Y,
	evdev.ABS_RX, evdev.ABS_RY, evdev.ABS_RZ, evdev.ABS_WHEEL, evdev.ABS_THROTTLE,
}

// Probe opens path and queries its EV_ABS/EV_KEY capability bitmaps plus
// absinfo for every axis the dispatcher cares about.
func Probe(path string) (Capabilities, error) {
	f, err := os.Open(path)
	if err != nil {
		return Capabilities{}, fmt.Errorf("source.Probe: %w", err)
	}
	defer f.Close()
	fd := int(f.Fd())

	caps := Capabilities{AxisInfo: make(map[uint16]evdev.AbsInfo)}

	if bits, err := evdev.GetBits(fd, evdev.EV_ABS, evdev.ABS_MAX); err == nil {
		caps.Abs = bits
	}
	if bits, err := evdev.GetBits(fd, evdev.EV_KEY, evdev.KEY_MAX); err == nil {
		caps.Keys = bits
	}

	for _, code := range candidateAxes {
		if caps.Abs != nil && !caps.Abs.Test(code) {
			continue
		}
		info, err := evdev.GetAbsInfo(fd, code)
		if err != nil {
			continue
		}
		caps.AxisInfo[code] = info
	}

	return caps, nil
}

// TryGrab issues EVIOCGRAB(1), exclusively grabbing the device (teacher's
// tryGrab, -no-grab default true since grabbing a tablet's pen device also
// steals mouse emulation on most desktops).
func TryGrab(fd int) error { return evdev.Grab(fd) }

// PathForExplicitOrDefault resolves the device path: explicit if given,
// else the first heuristically-scored /proc/bus/input/devices match, else
// the first /dev/input/event* glob match (teacher's pickInputDevicePath).
func PathForExplicitOrDefault(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	b, err := os.ReadFile("/proc/bus/input/devices")
	if err == nil {
		bestScore, bestPath := int64(-1), ""
		for _, blk := range strings.Split(string(b), "\n\n") {
			var name string
			var handlers []string
			for _, line := range strings.Split(blk, "\n") {
				if v, ok := strings.CutPrefix(line, "N: Name="); ok {
					name = strings.Trim(v, " \"")
				}
				if v, ok := strings.CutPrefix(line, "H: Handlers="); ok {
					handlers = strings.Fields(v)
				}
			}
			ev := ""
			for _, h := range handlers {
				if strings.HasPrefix(h, "event") {
					ev = h
					break
				}
			}
			if ev == "" {
				continue
			}
			score := int64(0)
			ln := strings.ToLower(name)
			for _, kw := range []string{"stylus", "wacom", "pen", "marker", "tablet"} {
				if strings.Contains(ln, kw) {
					score += 10
					break
				}
			}
			if strings.Contains(ln, "touch") {
				score += 2
			}
			if path := "/dev/input/" + ev; score > bestScore {
				bestScore, bestPath = score, path
			}
		}
		if bestPath != "" {
			return bestPath, nil
		}
	}

	matches, _ := filepath.Glob("/dev/input/event*")
	if len(matches) == 0 {
		return "", errors.New("source: no /dev/input/event* devices found")
	}
	return matches[0], nil
}

// activity tallies event counts observed while probing one device node, for
// scoring which of several candidates is the currently-active tablet.
type activity struct {
	path                                       string
	any, absX, absY, absPressure, absDistance int
	btnTouch, btnTool                         int
}

func (a activity) score() int {
	return a.any + 5*a.absX + 5*a.absY + 8*a.absPressure + 8*a.absDistance + 8*a.btnTouch + 6*a.btnTool
}

func probeActivity(path string, dur time.Duration) (activity, error) {
	out := activity{path: path}
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()
	fd := int(f.Fd())

	if err := unix.SetNonblock(fd, true); err != nil {
		return out, err
	}

	reader := bufio.NewReaderSize(f, 4096)
	parser := &evdev.Parser{}
	deadline := time.Now().Add(dur)

	for time.Now().Before(deadline) {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		_, _ = unix.Poll(pfd, 50)
		if pfd[0].Revents&unix.POLLIN == 0 {
			continue
		}
		buf := make([]byte, 4096)
		n, err := reader.Read(buf)
		if err != nil || n == 0 {
			continue
		}
		parser.Feed(buf[:n], func(ev evdev.RawEvent) {
			out.any++
			switch ev.Type {
			case evdev.EV_ABS:
				switch ev.Code {
				case evdev.ABS_X:
					out.absX++
				case evdev.ABS_Y:
					out.absY++
				case evdev.ABS_PRESSURE:
					out.absPressure++
				case evdev.ABS_DISTANCE:
					out.absDistance++
				}
			case evdev.EV_KEY:
				switch {
				case ev.Code == evdev.BTN_TOUCH:
					out.btnTouch++
				case evdev.IsToolCode(ev.Code):
					out.btnTool++
				}
			}
		})
	}
	return out, nil
}

// AutoDetectActive probes every /dev/input/event* node for probeDur and
// returns the path with the highest activity score (teacher's
// autoDetectActiveDevice, generalized to every tool code instead of just
// pen/rubber).
func AutoDetectActive(explicit string, probeDur time.Duration) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	matches, _ := filepath.Glob("/dev/input/event*")
	if len(matches) == 0 {
		return "", errors.New("source: no /dev/input/event* devices found")
	}
	sort.Strings(matches)

	bestScore := -1
	best := activity{path: matches[0]}
	for _, p := range matches {
		a, err := probeActivity(p, probeDur)
		if err != nil {
			continue
		}
		if s := a.score(); s > bestScore {
			bestScore = s
			best = a
		}
	}
	return best.path, nil
}
