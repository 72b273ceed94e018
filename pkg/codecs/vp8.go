package codecs

import "fmt"

// vp8StartBit marks the first packet of a VP8 frame in the one-byte
// descriptor (RFC 7741 §4.2, simplified form used here: no extended
// control bits, no picture ID).
const vp8StartBit = 0x10

// VP8Packetizer fragments an encoded VP8 frame into RTP payloads, each
// prefixed with the one-byte descriptor (§4.7).
type VP8Packetizer struct {
	MaxPayloadSize int
}

// NewVP8Packetizer constructs a packetizer using MaxPayloadSize as the
// fragmentation threshold.
func NewVP8Packetizer() *VP8Packetizer {
	return &VP8Packetizer{MaxPayloadSize: MaxPayloadSize}
}

func (p *VP8Packetizer) maxSize() int {
	if p.MaxPayloadSize > 0 {
		return p.MaxPayloadSize
	}
	return MaxPayloadSize
}

// Packetize fragments frame into one or more RTP payloads, marking the
// first fragment with the VP8 start bit and the last RTP payload of the
// frame with the RTP marker bit.
func (p *VP8Packetizer) Packetize(frame []byte, ts uint32) []Sample {
	if len(frame) == 0 {
		return nil
	}
	maxSize := p.maxSize()
	fragmentCap := maxSize - 1
	if fragmentCap < 1 {
		fragmentCap = 1
	}

	var out []Sample
	for off := 0; off < len(frame); off += fragmentCap {
		end := off + fragmentCap
		last := false
		if end >= len(frame) {
			end = len(frame)
			last = true
		}
		descriptor := byte(0x00)
		if off == 0 {
			descriptor = vp8StartBit
		}
		payload := make([]byte, 0, 1+(end-off))
		payload = append(payload, descriptor)
		payload = append(payload, frame[off:end]...)
		out = append(out, Sample{Payload: payload, Marker: last, Timestamp: ts})
	}
	return out
}

// VP8Depacketizer reassembles VP8 RTP payloads into frames.
type VP8Depacketizer struct {
	frame     []byte
	inFrame   bool
}

// Push feeds one RTP payload into the depacketizer, returning a complete
// frame when marker is set. A payload without the start bit while no frame
// is in progress is rejected (§4.7).
func (d *VP8Depacketizer) Push(payload []byte, marker bool) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("codecs: empty vp8 payload")
	}
	descriptor := payload[0]
	isStart := descriptor&vp8StartBit != 0

	if isStart {
		d.frame = append([]byte(nil), payload[1:]...)
		d.inFrame = true
	} else {
		if !d.inFrame {
			return nil, fmt.Errorf("codecs: vp8 continuation packet without start bit")
		}
		d.frame = append(d.frame, payload[1:]...)
	}

	if marker {
		out := d.frame
		d.frame = nil
		d.inFrame = false
		return out, nil
	}
	return nil, nil
}
