package rtp

import "fmt"

// RFC 5285 extension profiles.
const (
	ExtensionProfileOneByte uint16 = 0xBEDE
	ExtensionProfileTwoByte uint16 = 0x1000 // upper byte fixed at 0x10, lower byte is "appbits"
)

// RawExtension is one decoded id+payload pair from a header extension
// block, independent of which profile carried it.
type RawExtension struct {
	ID      uint8
	Payload []byte
}

// ExtensionMap is a local extension-id assignment, keyed by URI, negotiated
// out of band (by SDP extmap) and handed to MediaStreamTrack construction.
// Per §4.9 only ids 1..14 are valid for marshalling; 0 and 15 are reserved.
type ExtensionMap map[string]uint8

// IDFor returns the assigned id for uri, or 0 if not present.
func (m ExtensionMap) IDFor(uri string) uint8 {
	return m[uri]
}

// URIFor returns the uri assigned to id, or "" if none.
func (m ExtensionMap) URIFor(id uint8) string {
	for uri, assigned := range m {
		if assigned == id {
			return uri
		}
	}
	return ""
}

// ExtensionBuilder accumulates one-byte-profile header extensions for an
// outgoing packet.
type ExtensionBuilder struct {
	entries []RawExtension
}

// Add appends an extension. ids outside 1..14 are silently skipped per
// §4.9 ("Ids outside 1..14 are silently skipped when marshalling").
func (b *ExtensionBuilder) Add(id uint8, payload []byte) {
	if id < 1 || id > 14 {
		return
	}
	b.entries = append(b.entries, RawExtension{ID: id, Payload: payload})
}

// Empty reports whether no extensions were added.
func (b *ExtensionBuilder) Empty() bool {
	return len(b.entries) == 0
}

// Build serialises the accumulated extensions using the one-byte profile,
// zero-padding the result to a 4-byte boundary, and returns the profile id
// plus the padded payload ready to drop into Header.ExtensionProfile /
// Header.ExtensionPayload.
func (b *ExtensionBuilder) Build() (profile uint16, payload []byte, err error) {
	if len(b.entries) == 0 {
		return 0, nil, nil
	}
	var buf []byte
	for _, e := range b.entries {
		if len(e.Payload) == 0 || len(e.Payload) > 16 {
			return 0, nil, fmt.Errorf("rtp: one-byte extension id %d has invalid length %d", e.ID, len(e.Payload))
		}
		buf = append(buf, (e.ID<<4)|uint8(len(e.Payload)-1))
		buf = append(buf, e.Payload...)
	}
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return ExtensionProfileOneByte, buf, nil
}

// WalkExtensions iterates the header extensions of h, calling fn for each
// decoded id/payload pair. Unrecognised profiles yield no iterations (the
// extension bytes are simply not walked, per §4.1). The walk aborts
// (returning early, without error) the moment it encounters a span that
// would run past the end of the extension payload, so a malformed
// extension never propagates a partial read to fn.
func WalkExtensions(h *Header, fn func(RawExtension)) {
	if !h.Extension {
		return
	}
	switch h.ExtensionProfile {
	case ExtensionProfileOneByte:
		walkOneByte(h.ExtensionPayload, fn)
	case ExtensionProfileTwoByte:
		walkTwoByte(h.ExtensionPayload, fn)
	default:
		// Unrecognised profile: parse nothing further.
	}
}

func walkOneByte(buf []byte, fn func(RawExtension)) {
	i := 0
	for i < len(buf) {
		b := buf[i]
		id := b >> 4
		if id == 0 {
			// Padding byte.
			i++
			continue
		}
		if id == 15 {
			// Reserved id signals "stop parsing" in RFC 5285.
			return
		}
		length := int(b&0x0F) + 1
		i++
		if i+length > len(buf) {
			return
		}
		fn(RawExtension{ID: id, Payload: buf[i : i+length]})
		i += length
	}
}

func walkTwoByte(buf []byte, fn func(RawExtension)) {
	i := 0
	for i < len(buf) {
		id := buf[i]
		if id == 0 {
			// Single-byte padding (RFC 5285 §4.3), not an (id,len) pair.
			i++
			continue
		}
		if i+2 > len(buf) {
			return
		}
		length := int(buf[i+1])
		i += 2
		if i+length > len(buf) {
			return
		}
		fn(RawExtension{ID: id, Payload: buf[i : i+length]})
		i += length
	}
}
