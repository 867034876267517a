package input

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Event types
const (
	EvSyn = 0x00
	EvKey = 0x01
)

// Key event values
const (
	ValueUp     = 0
	ValueDown   = 1
	ValueRepeat = 2
)

// EventSize is sizeof(struct input_event): a timeval followed by
// type (2), code (2) and value (4). 16 bytes on 32-bit ARM, 24 on 64-bit.
const EventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

const timevalSize = EventSize - 8

// Event is one decoded input_event without its timestamp.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// IsKey reports whether e is an EV_KEY event.
func (e Event) IsKey() bool { return e.Type == EvKey }

// Key returns the event code as a KeyCode. Only meaningful for key events.
func (e Event) Key() KeyCode { return KeyCode(e.Code) }

// Decoder splits a byte stream into input events. Reads from an evdev node
// always return whole events; the carry-over buffer covers readers that
// don't (pipes, recorded captures).
type Decoder struct {
	buf []byte
}

// Feed appends chunk and returns every complete event it now holds, in order.
func (d *Decoder) Feed(chunk []byte) []Event {
	d.buf = append(d.buf, chunk...)
	var out []Event
	for len(d.buf) >= EventSize {
		raw := d.buf[:EventSize]
		out = append(out, Event{
			Type:  binary.LittleEndian.Uint16(raw[timevalSize:]),
			Code:  binary.LittleEndian.Uint16(raw[timevalSize+2:]),
			Value: int32(binary.LittleEndian.Uint32(raw[timevalSize+4:])),
		})
		d.buf = d.buf[EventSize:]
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return out
}

// Pending returns the number of buffered bytes that do not yet form an event.
func (d *Decoder) Pending() int { return len(d.buf) }

// AppendEvent encodes e as a raw input_event with a zero timestamp.
func AppendEvent(b []byte, e Event) []byte {
	raw := make([]byte, EventSize)
	binary.LittleEndian.PutUint16(raw[timevalSize:], e.Type)
	binary.LittleEndian.PutUint16(raw[timevalSize+2:], e.Code)
	binary.LittleEndian.PutUint32(raw[timevalSize+4:], uint32(e.Value))
	return append(b, raw...)
}
