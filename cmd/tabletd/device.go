package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tabletd/tabletd/internal/axis"
	"github.com/tabletd/tabletd/internal/dispatch"
	"github.com/tabletd/tabletd/internal/evdev"
	"github.com/tabletd/tabletd/internal/profile"
	"github.com/tabletd/tabletd/internal/sink"
	"github.com/tabletd/tabletd/internal/source"
)

// RunForever resolves the device(s) to read and runs one independent
// dispatcher goroutine per device (spec.md §5: "no cross-device calls, no
// shared state" — each Device owns its own Axis Registry, Tool Registry, and
// Frame State). Generalizes the teacher's single-device RunBridgeForever.
func RunForever(cfg Config, prof profile.Profile, log *slog.Logger) error {
	paths, err := resolveDevicePaths(cfg)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("tabletd: no input devices found")
	}

	done := make(chan struct{}, len(paths))
	for _, p := range paths {
		path := p
		go func() {
			runDeviceForever(path, cfg, prof, log.With("device", path))
			done <- struct{}{}
		}()
	}
	for range paths {
		<-done
	}
	return nil
}

func resolveDevicePaths(cfg Config) ([]string, error) {
	if cfg.InputDevice != "" {
		return []string{cfg.InputDevice}, nil
	}
	if !cfg.AllDevices {
		probeDur := time.Duration(float64(time.Second) * math.Max(0.1, cfg.ProbeSeconds))
		path, err := source.AutoDetectActive("", probeDur)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	matches, _ := filepath.Glob("/dev/input/event*")
	sort.Strings(matches)
	var out []string
	for _, m := range matches {
		caps, err := source.Probe(m)
		if err != nil {
			continue
		}
		if _, hasX := caps.AxisInfo[evdev.ABS_X]; !hasX {
			continue
		}
		if _, hasY := caps.AxisInfo[evdev.ABS_Y]; !hasY {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// runDeviceForever owns one device's dispatcher and its websocket sink for
// the process lifetime, reconnecting the socket with backoff on failure —
// same reconnect-forever shape as the teacher's RunBridgeForever, scoped to
// one device instead of the whole process.
func runDeviceForever(path string, cfg Config, prof profile.Profile, log *slog.Logger) {
	caps, err := source.Probe(path)
	if err != nil {
		log.Error("tabletd: probe failed, giving up on device", "err", err)
		return
	}

	axisInfo := caps.AxisInfo
	for name, code := range prof.AxisOverride {
		if info, ok := axisInfo[axisNameCode(name)]; ok {
			axisInfo[code] = info
		}
	}

	axes, err := axis.New(axisInfo)
	if err != nil {
		log.Error("tabletd: axis registry construction failed, giving up on device", "err", err)
		return
	}

	pingEvery := time.Duration(float64(time.Second) * math.Max(1, cfg.PingSeconds))
	pongWait := time.Duration(float64(time.Second) * math.Max(2, cfg.PongTimeoutSeconds))

	reconnectDelay := 500 * time.Millisecond
	maxReconnectDelay := 5 * time.Second

	for {
		ws, err := sink.Dial(context.Background(), path, cfg.WsURL, pingEvery, pongWait, cfg.QueueDepth, log)
		if err != nil {
			jitter := time.Duration(rand.Int63n(int64(250 * time.Millisecond)))
			log.Warn("tabletd: websocket connect failed, retrying", "err", err, "delay", reconnectDelay+jitter)
			time.Sleep(reconnectDelay + jitter)
			reconnectDelay = time.Duration(math.Min(float64(maxReconnectDelay), float64(reconnectDelay)*1.7))
			continue
		}
		log.Info("tabletd: connected", "ws", cfg.WsURL)
		reconnectDelay = 500 * time.Millisecond

		device := dispatch.New(axes, ws, log)
		readErr := readDevice(path, cfg, device, ws.Err(), log)
		ws.Close()
		device.Close()

		if readErr == nil {
			// Device node closed cleanly (e.g. unplugged) — nothing left to serve.
			return
		}
		log.Warn("tabletd: connection lost, reconnecting", "err", readErr)
	}
}

// readDevice runs the blocking read loop for one device/connection pairing,
// feeding every decoded RawEvent to device.Process. Returns when the socket
// reports an error (wsErr) or the device file hits EOF (nil) or an error.
func readDevice(path string, cfg Config, device *dispatch.Device, wsErr <-chan error, log *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !cfg.NoGrab {
		if err := source.TryGrab(int(f.Fd())); err != nil {
			log.Warn("tabletd: EVIOCGRAB failed, continuing ungrabbed", "err", err)
		}
	}

	type readResult struct {
		n   int
		err error
	}
	results := make(chan readResult, 1)
	buf := make([]byte, 4096)
	reader := bufio.NewReaderSize(f, 4096)

	readOne := func() {
		n, err := reader.Read(buf)
		results <- readResult{n, err}
	}
	go readOne()

	parser := &evdev.Parser{}
	for {
		select {
		case err := <-wsErr:
			return err
		case r := <-results:
			if r.err == io.EOF {
				return nil
			}
			if r.err != nil {
				return r.err
			}
			parser.Feed(buf[:r.n], func(ev evdev.RawEvent) {
				if cfg.DumpEvents {
					log.Info("raw event", "type", ev.Type, "code", ev.Code, "value", ev.Value)
				}
				device.Process(ev)
			})
			go readOne()
		}
	}
}

func axisNameCode(name string) uint16 {
	switch name {
	case "x":
		return evdev.ABS_X
	case "y":
		return evdev.ABS_Y
	case "pressure":
		return evdev.ABS_PRESSURE
	case "distance":
		return evdev.ABS_DISTANCE
	case "tilt_x":
		return evdev.ABS_TILT_X
	case "tilt_y":
		return evdev.ABS_TILT_Y
	default:
		return 0xffff
	}
}
