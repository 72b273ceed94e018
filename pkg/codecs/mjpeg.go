package codecs

import "fmt"

// MJPEGPacketizer fragments a JPEG frame into RTP payloads using the
// simplified RFC 2435 8-byte header (type/Q/width/height fixed at zero,
// only the fragmentation offset is meaningful here — the full
// restart-marker and quantization-table extensions are out of scope, §4.7).
type MJPEGPacketizer struct {
	MaxPayloadSize int
}

// NewMJPEGPacketizer constructs a packetizer using MaxPayloadSize.
func NewMJPEGPacketizer() *MJPEGPacketizer {
	return &MJPEGPacketizer{MaxPayloadSize: MaxPayloadSize}
}

func (p *MJPEGPacketizer) maxSize() int {
	if p.MaxPayloadSize > 0 {
		return p.MaxPayloadSize
	}
	return MaxPayloadSize
}

// Packetize fragments frame across the MTU, stamping the 8-byte JPEG RTP
// header with the incremental offset field; the marker bit is set on the
// last fragment.
func (p *MJPEGPacketizer) Packetize(frame []byte, ts uint32) []Sample {
	if len(frame) == 0 {
		return nil
	}
	maxSize := p.maxSize()
	fragmentCap := maxSize - 8
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
		header := make([]byte, 8)
		header[0] = 0 // type-specific
		header[1] = byte(off >> 16)
		header[2] = byte(off >> 8)
		header[3] = byte(off)
		// header[4]=type, header[5]=Q, header[6]=width/8, header[7]=height/8
		// are left zero: negotiated out of band by the application (§1).

		payload := make([]byte, 0, 8+(end-off))
		payload = append(payload, header...)
		payload = append(payload, frame[off:end]...)
		out = append(out, Sample{Payload: payload, Marker: last, Timestamp: ts})
	}
	return out
}

// MJPEGDepacketizer reassembles JPEG RTP payloads into frames using the
// offset field to detect the start of a new frame and gaps in the stream.
type MJPEGDepacketizer struct {
	frame      []byte
	expectNext uint32
	inFrame    bool
}

// Push feeds one RTP payload into the depacketizer, returning a complete
// JPEG frame when marker is set.
func (d *MJPEGDepacketizer) Push(payload []byte, marker bool) ([]byte, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("codecs: mjpeg payload shorter than header")
	}
	offset := uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])

	if offset == 0 {
		d.frame = append([]byte(nil), payload[8:]...)
		d.expectNext = uint32(len(payload) - 8)
		d.inFrame = true
	} else {
		if !d.inFrame || offset != d.expectNext {
			d.frame = nil
			d.inFrame = false
			return nil, fmt.Errorf("codecs: mjpeg fragment offset mismatch, resetting frame")
		}
		d.frame = append(d.frame, payload[8:]...)
		d.expectNext += uint32(len(payload) - 8)
	}

	if marker {
		out := d.frame
		d.frame = nil
		d.inFrame = false
		return out, nil
	}
	return nil, nil
}
