package rtp

import (
	"encoding/binary"
	"fmt"
)

// DuplicateCount is the number of copies sent at the start and end of a
// DTMF event for reliability over an unreliable transport (§3, §6).
const DuplicateCount = 3

// DefaultDTMFPayloadType is the conventional dynamic payload type for
// telephone-event, negotiated in practice but defaulted here per §6.
const DefaultDTMFPayloadType = 101

// EventSamplePeriod is the default inter-packet spacing for progressive
// DTMF event packets (§5, §6).
const EventSamplePeriod = 50 // milliseconds

// Event is an RFC 2833/4733 telephone-event payload: a 4-byte RTP
// payload carrying one DTMF digit/tone.
type Event struct {
	EventID  uint8  // 0-15 digits, plus tones up to 255
	End      bool   // end-of-event bit
	Volume   uint8  // 6 bits, 0-63, -dBm0
	Duration uint16 // cumulative duration in timestamp units
}

// Marshal encodes the 4-byte RFC 2833 payload:
//
//	byte0: event-id
//	byte1: end-bit(1) | reserved(1) | volume(6, masked 0x3F)
//	byte2-3: duration, big-endian
func (e Event) Marshal() []byte {
	buf := make([]byte, 4)
	buf[0] = e.EventID
	buf[1] = e.Volume & 0x3F
	if e.End {
		buf[1] |= 0x80
	}
	binary.BigEndian.PutUint16(buf[2:4], e.Duration)
	return buf
}

// UnmarshalEvent decodes a 4-byte RFC 2833 payload.
func UnmarshalEvent(payload []byte) (Event, error) {
	if len(payload) != 4 {
		return Event{}, fmt.Errorf("rtp: dtmf event payload must be 4 bytes, got %d", len(payload))
	}
	return Event{
		EventID:  payload[0],
		End:      payload[1]&0x80 != 0,
		Volume:   payload[1] & 0x3F,
		Duration: binary.BigEndian.Uint16(payload[2:4]),
	}, nil
}

// EventPacketPlan describes the duration pattern for one DTMF event
// send, per §8 scenario 2: DuplicateCount start copies
// at the initial progressive duration, zero or more progressive copies as
// the event is held, then DuplicateCount end copies carrying the final
// duration.
type EventPacketPlan struct {
	EventID        uint8
	Volume         uint8
	TotalDuration  uint16 // total event duration, in timestamp units
	StepDuration   uint16 // duration advertised by each non-final progressive packet
}

// Events returns the ordered list of Event payloads to emit, with the first
// DuplicateCount copies at the same starting duration and the final
// DuplicateCount copies all carrying the event's total duration and
// End=true.
func (p EventPacketPlan) Events() []Event {
	var out []Event

	start := p.StepDuration
	if start == 0 || start > p.TotalDuration {
		start = p.TotalDuration
	}
	for i := 0; i < DuplicateCount; i++ {
		out = append(out, Event{EventID: p.EventID, Volume: p.Volume, Duration: start})
	}

	step := p.StepDuration
	if step == 0 {
		step = p.TotalDuration
	}
	for d := start; d < p.TotalDuration; {
		next := d + step
		if next > p.TotalDuration {
			next = p.TotalDuration
		}
		out = append(out, Event{EventID: p.EventID, Volume: p.Volume, Duration: next})
		d = next
	}

	for i := 0; i < DuplicateCount; i++ {
		out = append(out, Event{EventID: p.EventID, Volume: p.Volume, Duration: p.TotalDuration, End: true})
	}

	return out
}
