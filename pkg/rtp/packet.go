package rtp

import "fmt"

// SRTPMaxPrefixLength is the trailing slack SRTP authenticators/tags need
// reserved in a packet buffer before a protect() call (spec §3, §4.3). It
// is sized for the worst case supported cipher suite (AEAD tag + MKI).
const SRTPMaxPrefixLength = 148

// Packet owns a parsed Header plus the raw payload bytes that followed it
// on the wire.
type Packet struct {
	Header  Header
	Payload []byte
}

// Clone returns a deep copy of p, safe to retain past the lifetime of the
// buffer p.Payload was sliced from.
func (p *Packet) Clone() *Packet {
	clone := &Packet{Header: p.Header}
	if len(p.Header.CSRC) > 0 {
		clone.Header.CSRC = append([]uint32(nil), p.Header.CSRC...)
	}
	if len(p.Header.ExtensionPayload) > 0 {
		clone.Header.ExtensionPayload = append([]byte(nil), p.Header.ExtensionPayload...)
	}
	clone.Payload = append([]byte(nil), p.Payload...)
	return clone
}

// ParsePacket parses a full RTP packet (header + payload), applying the
// padding-count defence from Header.PayloadSize.
func ParsePacket(buf []byte) (*Packet, error) {
	h, offset, err := Parse(buf)
	if err != nil {
		return nil, err
	}
	var padByte uint8
	if h.Padding && len(buf) > offset {
		padByte = buf[len(buf)-1]
	}
	payloadLen := h.PayloadSize(len(buf), padByte)
	if offset+payloadLen > len(buf) {
		payloadLen = len(buf) - offset
	}
	return &Packet{
		Header:  *h,
		Payload: append([]byte(nil), buf[offset:offset+payloadLen]...),
	}, nil
}

// Marshal serialises the packet's header followed by its payload. extra
// pre-allocates trailing zero bytes after the payload (used by callers that
// are about to hand the buffer to an SRTP protect() closure needing room
// for an authentication tag). The returned slice includes those extra
// bytes; a caller sending without protection trims them off.
func (p *Packet) Marshal(extra int) ([]byte, error) {
	if extra < 0 {
		return nil, fmt.Errorf("rtp: negative extra length %d", extra)
	}
	headerLen := p.Header.MarshalSize()
	buf := make([]byte, headerLen+len(p.Payload)+extra)
	n, err := p.Header.MarshalTo(buf)
	if err != nil {
		return nil, err
	}
	copy(buf[n:], p.Payload)
	return buf, nil
}
