// Package sink implements the Event Sink collaborator (spec.md §1, §5, §6.2):
// a concrete, non-blocking downstream consumer of dispatch.Event values.
//
// Grounded on the teacher's ws_client.go (WSConn/DialWS: TCP keepalive,
// ping/pong watchdog, background reader), generalized from stroke-specific
// JSON messages to a generic tagged dispatch.Event envelope.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tabletd/tabletd/internal/dispatch"
)

// envelope is the wire encoding for one dispatch.Event. Only the payload
// fields belonging to Type are populated.
type envelope struct {
	Type        string `json:"type"`
	Device      string `json:"device"`
	TimestampMS int64  `json:"ts_ms"`

	ToolType   string `json:"tool_type,omitempty"`
	ToolSerial uint32 `json:"tool_serial,omitempty"`

	X int32 `json:"x,omitempty"`
	Y int32 `json:"y,omitempty"`

	Axis  string  `json:"axis,omitempty"`
	Value float64 `json:"value,omitempty"`

	ButtonCode uint16 `json:"button_code,omitempty"`
	ButtonPad  bool   `json:"button_pad,omitempty"`
	State      string `json:"state,omitempty"`
}

func toEnvelope(device string, e dispatch.Event) envelope {
	env := envelope{Device: device, TimestampMS: e.Timestamp().UnixMilli()}
	switch v := e.(type) {
	case dispatch.ProximityIn:
		env.Type = "proximity_in"
		env.ToolType = v.Type.String()
		env.ToolSerial = v.Serial
	case dispatch.ProximityOut:
		env.Type = "proximity_out"
	case dispatch.MotionAbsolute:
		env.Type = "motion_absolute"
		env.X, env.Y = v.X, v.Y
	case dispatch.Axis:
		env.Type = "axis"
		env.Axis = v.Logical.String()
		switch val := v.Value.(type) {
		case int32:
			env.Value = float64(val)
		default:
			if q, ok := v.Q24_8(); ok {
				env.Value = q.Float64()
			}
		}
	case dispatch.Button:
		env.Type = "button"
		env.ButtonCode = v.Code
		env.ButtonPad = v.Pad
		env.State = v.State.String()
	case dispatch.Frame:
		env.Type = "frame"
	}
	return env
}

// WebSocketSink ships events to a desktop/consumer process over a
// keepalive'd websocket. Emit is non-blocking: it enqueues onto a bounded
// channel, dropping the incoming event if the writer goroutine can't keep
// up (logged once per run of consecutive drops) — spec.md §5's "the core does not buffer; emission must be
// non-blocking" pushed down to this concrete sink instead of the dispatcher.
type WebSocketSink struct {
	device string
	log    *slog.Logger

	conn *websocket.Conn
	mu   sync.Mutex

	queue chan dispatch.Event
	done  chan struct{}
	errC  chan error

	droppedOnce bool
}

// Dial opens a websocket connection to wsURL and starts the background
// writer, ping, and read-pump goroutines (teacher's DialWS).
func Dial(ctx context.Context, device, wsURL string, pingEvery, pongWait time.Duration, queueDepth int, log *slog.Logger) (*WebSocketSink, error) {
	if log == nil {
		log = slog.Default()
	}
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("sink.Dial: %w", err)
	}

	d := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		NetDialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 15 * time.Second,
		}).DialContext,
	}

	conn, _, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("sink.Dial: %w", err)
	}

	s := &WebSocketSink{
		device: device,
		log:    log,
		conn:   conn,
		queue:  make(chan dispatch.Event, queueDepth),
		done:   make(chan struct{}),
		errC:   make(chan error, 1),
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go s.readLoop()
	go s.pingLoop(pingEvery)
	go s.writeLoop()
	return s, nil
}

// Emit implements dispatch.Sink. Never blocks.
func (s *WebSocketSink) Emit(e dispatch.Event) {
	select {
	case s.queue <- e:
		s.droppedOnce = false
	default:
		if !s.droppedOnce {
			s.droppedOnce = true
			s.log.Warn("sink: queue full, dropping event", "device", s.device)
		}
	}
}

// Err returns a channel that receives at most one error when the
// connection fails (ping, pong timeout, or write error).
func (s *WebSocketSink) Err() <-chan error { return s.errC }

func (s *WebSocketSink) sendErr(err error) {
	select {
	case s.errC <- err:
	default:
	}
}

// Close terminates the background goroutines and the underlying
// connection.
func (s *WebSocketSink) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	_ = s.conn.Close()
}

func (s *WebSocketSink) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case e := <-s.queue:
			b, err := json.Marshal(toEnvelope(s.device, e))
			if err != nil {
				continue
			}
			s.mu.Lock()
			_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err = s.conn.WriteMessage(websocket.TextMessage, b)
			s.mu.Unlock()
			if err != nil {
				s.sendErr(err)
				return
			}
		}
	}
}

func (s *WebSocketSink) readLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.sendErr(err)
			return
		}
	}
}

func (s *WebSocketSink) pingLoop(pingEvery time.Duration) {
	t := time.NewTicker(pingEvery)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.mu.Lock()
			_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := s.conn.WriteMessage(websocket.PingMessage, []byte("ping"))
			s.mu.Unlock()
			if err != nil {
				s.sendErr(err)
				return
			}
		}
	}
}
