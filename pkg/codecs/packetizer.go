// Package codecs implements the RTP payload packetisers and depacketisers
// for the media kinds this engine carries natively: H.264 (RFC 6184), H.265
// (RFC 7798), VP8 (RFC 7741), MJPEG (RFC 2435, simplified) and T.140 text
// (RFC 4103). Encoders/decoders themselves are out of scope (§1) — these
// types only reframe already-encoded samples into RTP payloads and back.
package codecs

// MaxPayloadSize is the default RTP payload budget a packetiser fragments
// around (§6 RTP_MAX_PAYLOAD).
const MaxPayloadSize = 1400

// Sample is one RTP payload ready to send, paired with the marker bit and
// timestamp the caller should stamp the RTP header with.
type Sample struct {
	Payload   []byte
	Marker    bool
	Timestamp uint32
}

// Packetizer fragments one encoded media sample (e.g. a VP8 or JPEG frame)
// into zero or more RTP payloads. Packetizers never error on empty input
// (no-op) and never exceed MaxPayloadSize per output payload (§4.7).
type Packetizer interface {
	Packetize(sample []byte, timestamp uint32) []Sample
}

// Depacketizer reassembles inbound RTP payloads (already in sequence order)
// back into encoded media samples. A nil, non-error return from Push means
// "buffered, frame not yet complete". Depacketizers discard packets that
// violate framing invariants and never let malformed input corrupt frames
// under assembly beyond the current one (§4.7).
type Depacketizer interface {
	// Push feeds one RTP payload (with its marker bit) into the
	// depacketizer. It returns a complete media sample when the payload
	// completes one, or nil otherwise.
	Push(payload []byte, marker bool) ([]byte, error)
}
