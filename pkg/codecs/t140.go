package codecs

import "time"

// T140Packetizer fragments text input across the MTU per RFC 4103. The
// marker bit is set on the first packet sent after an idle period (session
// start, or more than zero milliseconds since the previous send); the
// timestamp advances by elapsed wall-clock milliseconds since the last send
// (§4.7).
type T140Packetizer struct {
	MaxPayloadSize int
	ClockRate      uint32 // default 1000, per RFC 4103's 1kHz text clock

	lastSend time.Time
	started  bool
}

// NewT140Packetizer constructs a packetizer using MaxPayloadSize and a
// 1000 Hz clock.
func NewT140Packetizer() *T140Packetizer {
	return &T140Packetizer{MaxPayloadSize: MaxPayloadSize, ClockRate: 1000}
}

func (p *T140Packetizer) maxSize() int {
	if p.MaxPayloadSize > 0 {
		return p.MaxPayloadSize
	}
	return MaxPayloadSize
}

// Packetize fragments text across the MTU at the given wall-clock send
// time, returning payloads with Timestamp already advanced by elapsed idle
// time from the previous call.
func (p *T140Packetizer) Packetize(text []byte, now time.Time, lastTimestamp uint32) []Sample {
	if len(text) == 0 {
		return nil
	}

	clockRate := p.ClockRate
	if clockRate == 0 {
		clockRate = 1000
	}

	idle := !p.started || now.After(p.lastSend)
	var elapsedMs int64
	if p.started {
		elapsedMs = now.Sub(p.lastSend).Milliseconds()
	}
	ts := lastTimestamp + uint32(elapsedMs*int64(clockRate)/1000)

	p.lastSend = now
	p.started = true

	maxSize := p.maxSize()
	var out []Sample
	first := true
	for off := 0; off < len(text); off += maxSize {
		end := off + maxSize
		if end > len(text) {
			end = len(text)
		}
		out = append(out, Sample{
			Payload:   append([]byte(nil), text[off:end]...),
			Marker:    first && idle,
			Timestamp: ts,
		})
		first = false
	}
	return out
}

// T140Depacketizer reassembles T.140 RTP payloads. Each payload is already
// a complete or partial UTF-8 text fragment; RFC 4103 carries no
// higher-level framing, so Push returns each payload on its own, without
// joining it to earlier ones, and ignores the marker bit.
type T140Depacketizer struct{}

// Push returns payload unchanged as the "complete sample" — T.140 has no
// assembly state beyond passthrough.
func (T140Depacketizer) Push(payload []byte, marker bool) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	return append([]byte(nil), payload...), nil
}
