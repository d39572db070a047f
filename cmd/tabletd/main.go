// Command tabletd reads one or more Linux tablet input devices and streams
// their proximity/motion/axis/button events to a desktop consumer over
// WebSocket.
//
// This directory builds a single self-contained binary that:
// - discovers and opens /dev/input/event* nodes for attached tablets
// - runs an independent dispatcher per device (internal/dispatch)
// - streams the resulting events to a desktop process (internal/sink)
//
// Code is split across:
// - main.go: flag/env config, startup
// - device.go: per-device read loop + reconnect-forever run loop
// - list.go: -list-devices output
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tabletd/tabletd/internal/config"
	"github.com/tabletd/tabletd/internal/profile"
)

// Config is tabletd's resolved runtime configuration (generalizes the
// teacher's BridgeConfig to N devices and drops the stroke-specific fields
// — brush/color/touch-mode — that belonged to the teacher's stroke protocol
// rather than this dispatcher's raw event protocol).
type Config struct {
	WsURL       string
	InputDevice string
	ProfilePath string
	NoGrab      bool
	AllDevices  bool

	Debug       bool
	DumpEvents  bool
	ListDevices bool

	ProbeSeconds       float64
	PingSeconds        float64
	PongTimeoutSeconds float64
	QueueDepth         int
}

func main() {
	cfg := Config{
		WsURL:              config.GetenvDefault("DESKTOP_WS", "ws://127.0.0.1:8000/ws/tablet"),
		InputDevice:        os.Getenv("INPUT_DEVICE"),
		ProfilePath:        os.Getenv("TABLET_PROFILE"),
		NoGrab:             config.GetenvBoolDefault("NO_GRAB", true),
		AllDevices:         config.GetenvBoolDefault("ALL_DEVICES", false),
		Debug:              config.GetenvBoolDefault("DEBUG", false),
		DumpEvents:         config.GetenvBoolDefault("DUMP_EVENTS", false),
		ListDevices:        false,
		ProbeSeconds:       config.GetenvFloatDefault("PROBE_SECONDS", 1.5),
		PingSeconds:        config.GetenvFloatDefault("PING_SECONDS", 2),
		PongTimeoutSeconds: config.GetenvFloatDefault("PONG_TIMEOUT_SECONDS", 8),
		QueueDepth:         config.GetenvIntDefault("QUEUE_DEPTH", 256),
	}

	flag.StringVar(&cfg.WsURL, "ws", cfg.WsURL, "WebSocket URL to the desktop consumer")
	flag.StringVar(&cfg.InputDevice, "input", cfg.InputDevice, "Input device path (e.g. /dev/input/event3). If empty, auto-detect.")
	flag.StringVar(&cfg.ProfilePath, "profile", cfg.ProfilePath, "Device profile YAML path (pad button base, axis overrides). Optional.")
	flag.BoolVar(&cfg.NoGrab, "no-grab", cfg.NoGrab, "Do not EVIOCGRAB the input device (recommended)")
	flag.BoolVar(&cfg.AllDevices, "all-devices", cfg.AllDevices, "Run a dispatcher for every plausible tablet device instead of just the best match")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Log at debug level")
	flag.BoolVar(&cfg.DumpEvents, "dump-events", cfg.DumpEvents, "Log every raw input event (type/code/value). Noisy.")
	flag.BoolVar(&cfg.ListDevices, "list-devices", false, "Print /proc/bus/input/devices names/handlers and exit")
	flag.Float64Var(&cfg.ProbeSeconds, "probe-seconds", cfg.ProbeSeconds, "Seconds to probe each candidate device for activity when auto-detecting (draw during this!)")
	flag.Float64Var(&cfg.PingSeconds, "ping-seconds", cfg.PingSeconds, "WebSocket ping interval (seconds)")
	flag.Float64Var(&cfg.PongTimeoutSeconds, "pong-timeout-seconds", cfg.PongTimeoutSeconds, "Reconnect if no pong is received within this window")
	flag.IntVar(&cfg.QueueDepth, "queue-depth", cfg.QueueDepth, "Outgoing event queue depth before the sink starts dropping events")
	flag.Parse()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if cfg.ListDevices {
		listDevices()
		return
	}

	var prof profile.Profile
	if cfg.ProfilePath != "" {
		p, err := profile.Load(cfg.ProfilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		prof = p
	} else {
		prof = profile.Default()
	}

	if err := RunForever(cfg, prof, log); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
