package rtp

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Well-known one-byte header extension URIs (§4.9, §6).
const (
	URIAbsSendTime    = "http://www.webrtc.org/experiments/rtp-hdrext/abs-send-time"
	URICVO            = "urn:3gpp:video-orientation"
	URIAudioLevel     = "urn:ietf:params:rtp-hdrext:ssrc-audio-level"
	URITransportCC    = "http://www.ietf.org/id/draft-holmer-rmcat-transport-wide-cc-extensions-01"
	URIAbsCaptureTime = "http://www.webrtc.org/experiments/rtp-hdrext/abs-capture-time"
)

// AbsSendTime is a 24-bit fixed-point NTP fraction of "now" carried in 3
// bytes (6.18 fixed point seconds.fraction).
type AbsSendTime struct {
	Time time.Time
}

// Marshal encodes the 24-bit abs-send-time payload.
func (a AbsSendTime) Marshal() []byte {
	ntp := NTPTimestamp(a.Time)
	fixed := uint32(ntp >> 14) // low 6 seconds bits plus top 18 bits of the 32-bit fraction, 6.18 format
	buf := make([]byte, 3)
	buf[0] = byte(fixed >> 16)
	buf[1] = byte(fixed >> 8)
	buf[2] = byte(fixed)
	return buf
}

// UnmarshalAbsSendTime decodes a 3-byte abs-send-time payload.
func UnmarshalAbsSendTime(payload []byte) (AbsSendTime, error) {
	if len(payload) != 3 {
		return AbsSendTime{}, fmt.Errorf("rtp: abs-send-time must be 3 bytes, got %d", len(payload))
	}
	fixed := uint32(payload[0])<<16 | uint32(payload[1])<<8 | uint32(payload[2])
	ntp := uint64(fixed) << 14
	return AbsSendTime{Time: NTPTimestampToTime(ntp)}, nil
}

// CVO carries the Coordination-of-Video-Orientation rotation bits.
type CVO struct {
	CameraBack bool
	FlipH      bool
	Rotation   uint8 // 0, 90, 180, 270
}

// Marshal encodes the one-byte CVO payload.
func (c CVO) Marshal() []byte {
	var rot uint8
	switch c.Rotation {
	case 90:
		rot = 1
	case 180:
		rot = 2
	case 270:
		rot = 3
	}
	b := rot & 0x03
	if c.FlipH {
		b |= 0x04
	}
	if c.CameraBack {
		b |= 0x08
	}
	return []byte{b}
}

// UnmarshalCVO decodes a one-byte CVO payload.
func UnmarshalCVO(payload []byte) (CVO, error) {
	if len(payload) != 1 {
		return CVO{}, fmt.Errorf("rtp: cvo must be 1 byte, got %d", len(payload))
	}
	b := payload[0]
	c := CVO{
		FlipH:      b&0x04 != 0,
		CameraBack: b&0x08 != 0,
	}
	switch b & 0x03 {
	case 1:
		c.Rotation = 90
	case 2:
		c.Rotation = 180
	case 3:
		c.Rotation = 270
	}
	return c, nil
}

// AudioLevel carries voice-activity-detection plus signal level.
type AudioLevel struct {
	Voice bool
	Level uint8 // 0-127, -dBov
}

// Marshal encodes the one-byte audio-level payload.
func (a AudioLevel) Marshal() []byte {
	b := a.Level & 0x7F
	if a.Voice {
		b |= 0x80
	}
	return []byte{b}
}

// UnmarshalAudioLevel decodes a one-byte audio-level payload.
func UnmarshalAudioLevel(payload []byte) (AudioLevel, error) {
	if len(payload) != 1 {
		return AudioLevel{}, fmt.Errorf("rtp: audio-level must be 1 byte, got %d", len(payload))
	}
	return AudioLevel{
		Voice: payload[0]&0x80 != 0,
		Level: payload[0] & 0x7F,
	}, nil
}

// TWCCSequence is the monotonically increasing 16-bit transport-wide
// packet counter of the TWCC header extension.
type TWCCSequence struct {
	Sequence uint16
}

// Marshal encodes the two-byte TWCC sequence payload.
func (t TWCCSequence) Marshal() []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, t.Sequence)
	return buf
}

// UnmarshalTWCCSequence decodes a two-byte TWCC sequence payload.
func UnmarshalTWCCSequence(payload []byte) (TWCCSequence, error) {
	if len(payload) != 2 {
		return TWCCSequence{}, fmt.Errorf("rtp: twcc sequence must be 2 bytes, got %d", len(payload))
	}
	return TWCCSequence{Sequence: binary.BigEndian.Uint16(payload)}, nil
}

// AbsCaptureTime is the 64-bit NTP capture timestamp extension, surfaced
// to the remote track on receive.
type AbsCaptureTime struct {
	CaptureTime time.Time
}

// Marshal encodes the 8-byte abs-capture-time payload.
func (a AbsCaptureTime) Marshal() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, NTPTimestamp(a.CaptureTime))
	return buf
}

// UnmarshalAbsCaptureTime decodes an 8-byte abs-capture-time payload.
func UnmarshalAbsCaptureTime(payload []byte) (AbsCaptureTime, error) {
	if len(payload) != 8 {
		return AbsCaptureTime{}, fmt.Errorf("rtp: abs-capture-time must be 8 bytes, got %d", len(payload))
	}
	return AbsCaptureTime{CaptureTime: NTPTimestampToTime(binary.BigEndian.Uint64(payload))}, nil
}
