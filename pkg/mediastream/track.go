package mediastream

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
)

// MediaKind identifies the media carried by a track.
type MediaKind int

const (
	MediaKindAudio MediaKind = iota
	MediaKindVideo
	MediaKindText
)

func (k MediaKind) String() string {
	switch k {
	case MediaKindAudio:
		return "audio"
	case MediaKindVideo:
		return "video"
	case MediaKindText:
		return "text"
	default:
		return "unknown"
	}
}

// TrackDirection distinguishes a locally originated track from one
// describing the remote peer's media.
type TrackDirection int

const (
	DirectionLocal TrackDirection = iota
	DirectionRemote
)

// StreamStatus is the negotiated SDP direction for a stream. SendRtpRaw
// refuses to send unless the local track's status permits it (§4.3);
// OnReceiveRTPPacket does not consult it.
type StreamStatus int

const (
	StatusSendRecv StreamStatus = iota
	StatusSendOnly
	StatusRecvOnly
	StatusInactive
)

// CanSend reports whether status permits outbound media.
func (s StreamStatus) CanSend() bool {
	return s == StatusSendRecv || s == StatusSendOnly
}

// CanReceive reports whether status permits inbound media.
func (s StreamStatus) CanReceive() bool {
	return s == StatusSendRecv || s == StatusRecvOnly
}

// Capability is one negotiated payload-type to codec-format mapping.
type Capability struct {
	PayloadType uint8
	FormatName  string // e.g. "PCMU", "H264", "opus"
	ClockRate   uint32
}

// MediaStreamTrack describes one direction of media within a MediaStream:
// either the locally originated track or a description of what the remote
// peer is sending (§3).
type MediaStreamTrack struct {
	Direction TrackDirection
	Kind      MediaKind

	SSRC uint32

	seq       uint32 // atomic: packed as uint16 sequence counter
	Timestamp uint32

	Capabilities []Capability
	Status       StreamStatus

	// SSRCAttributes maps SDP a=ssrc attribute values, keyed by attribute
	// name, for remote tracks that carried them.
	SSRCAttributes map[string]string

	// LastRemoteSequence is the last sequence number observed on a remote
	// track, used for jump/wrap detection (§4.4).
	LastRemoteSequence uint16
	hasLastRemoteSeq   bool

	MaxBandwidth int

	// Extensions maps a locally assigned header-extension id to its URI
	// for this track.
	Extensions map[uint8]string
}

// NewLocalTrack builds a local track with a cryptographically random SSRC
// and initial sequence number (§3: "Local track SSRC and initial sequence
// number are random").
func NewLocalTrack(kind MediaKind, caps []Capability) *MediaStreamTrack {
	t := &MediaStreamTrack{
		Direction:    DirectionLocal,
		Kind:         kind,
		SSRC:         randomUint32(),
		Capabilities: caps,
		Status:       StatusSendRecv,
	}
	atomic.StoreUint32(&t.seq, uint32(randomUint16()))
	if kind == MediaKindAudio {
		t.ensureTelephoneEvent()
	}
	return t
}

// NewRemoteTrack builds a placeholder remote track; SSRC and capabilities
// are filled in as packets and SDP negotiation arrive.
func NewRemoteTrack(kind MediaKind) *MediaStreamTrack {
	return &MediaStreamTrack{
		Direction: DirectionRemote,
		Kind:      kind,
		Status:    StatusSendRecv,
	}
}

// ensureTelephoneEvent appends a telephone-event capability to an audio
// local track unless one is already present. NewLocalTrack always calls it
// for audio; there is no option to turn it off.
func (t *MediaStreamTrack) ensureTelephoneEvent() {
	for _, c := range t.Capabilities {
		if c.FormatName == "telephone-event" {
			return
		}
	}
	t.Capabilities = append(t.Capabilities, Capability{
		PayloadType: DefaultDTMFPayloadType,
		FormatName:  "telephone-event",
		ClockRate:   DefaultAudioClockRate,
	})
}

// NextSequence atomically increments and returns the next RTP sequence
// number to stamp on an outgoing packet, wrapping modulo 2^16 (§4.3,
// §5: "Sequence number allocation uses compare-and-swap").
func (t *MediaStreamTrack) NextSequence() uint16 {
	for {
		cur := atomic.LoadUint32(&t.seq)
		next := (cur + 1) & 0xFFFF
		if atomic.CompareAndSwapUint32(&t.seq, cur, next) {
			return uint16(next)
		}
	}
}

// CapabilityFor returns the capability registered for payloadType, or
// false if none is negotiated.
func (t *MediaStreamTrack) CapabilityFor(payloadType uint8) (Capability, bool) {
	for _, c := range t.Capabilities {
		if c.PayloadType == payloadType {
			return c, true
		}
	}
	return Capability{}, false
}

func randomUint32() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}

func randomUint16() uint16 {
	var b [2]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint16(b[:])
}
