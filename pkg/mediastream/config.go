// Package mediastream implements the MediaStream abstraction: the per-peer
// carrier of one unidirectional-capable audio, video or text track over
// UDP, tying together the RTP/RTCP wire codec, the reorder buffer, the
// pending-packet cache and the codec packetisers into the ingress/egress
// pipeline described in §4.3/§4.4.
package mediastream

import "time"

// RtpSecureMediaOption selects how (if at all) SRTP keying is negotiated
// for a stream (§6).
type RtpSecureMediaOption int

const (
	// SecureMediaNone carries RTP/RTCP unprotected.
	SecureMediaNone RtpSecureMediaOption = iota
	// SecureMediaDtlsSrtp derives SRTP keys from a DTLS-SRTP handshake
	// (see pkg/keying).
	SecureMediaDtlsSrtp
	// SecureMediaSdpCrypto derives SRTP keys from SDES crypto attributes
	// exchanged in the SDP offer/answer.
	SecureMediaSdpCrypto
)

func (o RtpSecureMediaOption) String() string {
	switch o {
	case SecureMediaNone:
		return "none"
	case SecureMediaDtlsSrtp:
		return "dtls-srtp"
	case SecureMediaSdpCrypto:
		return "sdp-crypto"
	default:
		return "unknown"
	}
}

// Constants from §6.
const (
	// RTPMaxPayload is the default fragmentation threshold codec
	// packetisers target.
	RTPMaxPayload = 1400
	// RTCPReportPeriod is the default SR/RR interval.
	RTCPReportPeriod = 10 * time.Second
	// NoRTPTimeout is the silence duration that triggers a timeout event.
	NoRTPTimeout = 35 * time.Second
	// RTPEventDefaultSamplePeriod is the default DTMF inter-packet spacing.
	RTPEventDefaultSamplePeriod = 50 * time.Millisecond
	// DuplicateCount is the number of start/end copies sent per DTMF event.
	DuplicateCount = 3
	// DefaultAudioClockRate is the RTP clock rate assumed for audio tracks
	// absent negotiation.
	DefaultAudioClockRate = 8000
	// DefaultDTMFPayloadType is the conventional dynamic telephone-event
	// payload type.
	DefaultDTMFPayloadType = 101
	// DefaultMaxReconstructedVideoFrameSize is the largest reassembled video
	// frame a VideoStream surfaces.
	DefaultMaxReconstructedVideoFrameSize = 1048576
)

// PortRange is an inclusive [Min, Max] UDP port range for ephemeral bind
// selection.
type PortRange struct {
	Min int
	Max int
}

// SessionConfig is the configuration surface a MediaStream (or the session
// that owns several of them) is built from (§6).
type SessionConfig struct {
	// IsMediaMultiplexed selects a single RTP socket for audio+video.
	IsMediaMultiplexed bool
	// IsRtcpMultiplexed selects RTCP sharing the RTP socket (RFC 5761).
	IsRtcpMultiplexed bool
	// SecureMedia selects the SRTP keying mode.
	SecureMedia RtpSecureMediaOption

	BindAddress  string
	BindPort     int
	RtpPortRange PortRange

	// AcceptRtpFromAny disables the private-NAT source filter in
	// AdjustRemoteEndPoint (§4.4).
	AcceptRtpFromAny bool

	// MaxReconstructedVideoFrameSize is the largest reassembled video frame
	// surfaced; larger completed frames are dropped. The buffer of a frame
	// still being assembled is not limited by it. 0 means
	// DefaultMaxReconstructedVideoFrameSize.
	MaxReconstructedVideoFrameSize int

	// NegotiatedRtpEventPayloadID is the payload type the remote peer
	// negotiated for RFC 2833 DTMF events; 0 means
	// DefaultDTMFPayloadType.
	NegotiatedRtpEventPayloadID uint8
}

func (c SessionConfig) maxVideoFrameSize() int {
	if c.MaxReconstructedVideoFrameSize > 0 {
		return c.MaxReconstructedVideoFrameSize
	}
	return DefaultMaxReconstructedVideoFrameSize
}

func (c SessionConfig) dtmfPayloadType() uint8 {
	if c.NegotiatedRtpEventPayloadID != 0 {
		return c.NegotiatedRtpEventPayloadID
	}
	return DefaultDTMFPayloadType
}
