package evdev

import (
	"encoding/binary"
	"testing"
	"time"
)

func encode64(sec, usec int64, typ, code uint16, value int32) []byte {
	b := make([]byte, 24)
	binary.LittleEndian.PutUint64(b[0:8], uint64(sec))
	binary.LittleEndian.PutUint64(b[8:16], uint64(usec))
	binary.LittleEndian.PutUint16(b[16:18], typ)
	binary.LittleEndian.PutUint16(b[18:20], code)
	binary.LittleEndian.PutUint32(b[20:24], uint32(value))
	return b
}

func encode32(sec, usec int32, typ, code uint16, value int32) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:4], uint32(sec))
	binary.LittleEndian.PutUint32(b[4:8], uint32(usec))
	binary.LittleEndian.PutUint16(b[8:10], typ)
	binary.LittleEndian.PutUint16(b[10:12], code)
	binary.LittleEndian.PutUint32(b[12:16], uint32(value))
	return b
}

func TestParserDecodes24ByteTimeval(t *testing.T) {
	var chunk []byte
	chunk = append(chunk, encode64(1, 500000, EV_ABS, ABS_X, 1234)...)
	chunk = append(chunk, encode64(1, 500100, EV_SYN, SYN_REPORT, 0)...)

	var got []RawEvent
	(&Parser{}).Feed(chunk, func(ev RawEvent) { got = append(got, ev) })

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Type != EV_ABS || got[0].Code != ABS_X || got[0].Value != 1234 {
		t.Errorf("got[0] = %+v", got[0])
	}
	wantTime := time.Second + 500100*time.Microsecond
	if got[1].Time != wantTime {
		t.Errorf("got[1].Time = %v, want %v", got[1].Time, wantTime)
	}
}

func TestParserDecodes16ByteTimeval(t *testing.T) {
	var chunk []byte
	chunk = append(chunk, encode32(2, 0, EV_KEY, BTN_TOOL_PEN, 1)...)
	chunk = append(chunk, encode32(2, 0, EV_SYN, SYN_REPORT, 0)...)

	var got []RawEvent
	(&Parser{}).Feed(chunk, func(ev RawEvent) { got = append(got, ev) })

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Type != EV_KEY || got[0].Code != BTN_TOOL_PEN || got[0].Value != 1 {
		t.Errorf("got[0] = %+v", got[0])
	}
}

func TestParserHandlesSplitReads(t *testing.T) {
	full := encode64(0, 0, EV_ABS, ABS_Y, 42)

	var got []RawEvent
	p := &Parser{}
	p.Feed(full[:10], func(ev RawEvent) { got = append(got, ev) })
	if len(got) != 0 {
		t.Fatalf("got %d events before full chunk fed, want 0", len(got))
	}
	p.Feed(full[10:], func(ev RawEvent) { got = append(got, ev) })
	if len(got) != 1 || got[0].Code != ABS_Y || got[0].Value != 42 {
		t.Fatalf("got = %+v, want one ABS_Y=42 event", got)
	}
}
