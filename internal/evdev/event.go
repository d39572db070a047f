package evdev

import (
	"encoding/binary"
	"time"
)

// RawEvent is a single kernel input_event tuple (spec.md §6.1).
type RawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
	Time  time.Duration // wall-clock offset decoded from the kernel timeval
}

// Parser decodes a stream of Linux input_event structs. The kernel's struct
// layout depends on the platform's timeval width (16 bytes on 32-bit time_t,
// 24 bytes on 64-bit time_t); the parser detects the width from the first
// chunk and sticks with it, mirroring the teacher's inputParser.
type Parser struct {
	buf []byte
	sz  int // 0 unknown, else 16 or 24
}

// Feed appends chunk to the parser's internal buffer and invokes cb once per
// complete input_event decoded so far.
func (p *Parser) Feed(chunk []byte, cb func(RawEvent)) {
	p.buf = append(p.buf, chunk...)
	if p.sz == 0 {
		switch {
		case len(p.buf) >= 48 && len(p.buf)%24 == 0:
			p.sz = 24
		case len(p.buf) >= 32 && len(p.buf)%16 == 0:
			p.sz = 16
		case len(p.buf) >= 24:
			// Fallback: assume 64-bit timeval (most current kernels).
			p.sz = 24
		}
	}

	for p.sz != 0 && len(p.buf) >= p.sz {
		ev := p.buf[:p.sz]
		p.buf = p.buf[p.sz:]

		var etype, code uint16
		var value int32
		var sec, usec int64

		if p.sz == 24 {
			sec = int64(binary.LittleEndian.Uint64(ev[0:8]))
			usec = int64(binary.LittleEndian.Uint64(ev[8:16]))
			etype = binary.LittleEndian.Uint16(ev[16:18])
			code = binary.LittleEndian.Uint16(ev[18:20])
			value = int32(binary.LittleEndian.Uint32(ev[20:24]))
		} else {
			sec = int64(binary.LittleEndian.Uint32(ev[0:4]))
			usec = int64(binary.LittleEndian.Uint32(ev[4:8]))
			etype = binary.LittleEndian.Uint16(ev[8:10])
			code = binary.LittleEndian.Uint16(ev[10:12])
			value = int32(binary.LittleEndian.Uint32(ev[12:16]))
		}

		cb(RawEvent{
			Type:  etype,
			Code:  code,
			Value: value,
			Time:  time.Duration(sec)*time.Second + time.Duration(usec)*time.Microsecond,
		})
	}
}
