package rtp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCVOMarshalUnmarshalRoundTrip(t *testing.T) {
	c := CVO{CameraBack: true, FlipH: true, Rotation: 180}
	payload := c.Marshal()
	require.Len(t, payload, 1)

	got, err := UnmarshalCVO(payload)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestCVOUnmarshalRejectsWrongLength(t *testing.T) {
	_, err := UnmarshalCVO([]byte{1, 2})
	assert.Error(t, err)
}

func TestAudioLevelMarshalUnmarshalRoundTrip(t *testing.T) {
	a := AudioLevel{Voice: true, Level: 42}
	payload := a.Marshal()
	got, err := UnmarshalAudioLevel(payload)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestAudioLevelHighBitIsVoiceFlagNotLevel(t *testing.T) {
	a := AudioLevel{Voice: false, Level: 127}
	payload := a.Marshal()
	assert.Equal(t, byte(0x7F), payload[0])
}

func TestTWCCSequenceMarshalUnmarshalRoundTrip(t *testing.T) {
	tw := TWCCSequence{Sequence: 0xBEEF}
	payload := tw.Marshal()
	require.Len(t, payload, 2)
	got, err := UnmarshalTWCCSequence(payload)
	require.NoError(t, err)
	assert.Equal(t, tw, got)
}

func TestAbsCaptureTimeMarshalUnmarshalRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	a := AbsCaptureTime{CaptureTime: now}
	payload := a.Marshal()
	require.Len(t, payload, 8)

	got, err := UnmarshalAbsCaptureTime(payload)
	require.NoError(t, err)
	assert.WithinDuration(t, now, got.CaptureTime, time.Millisecond)
}

func TestAbsSendTimeMarshalUnmarshalPreservesSecondsModuloAndFraction(t *testing.T) {
	// The 24-bit wire format only carries seconds mod 64 plus an 18-bit
	// fraction (RFC abs-send-time): UnmarshalAbsSendTime's reconstructed
	// absolute time is only meaningful relative to a receiver's own clock,
	// so the round trip is checked on the wrapped components, not the
	// absolute instant.
	now := time.Date(2026, 8, 1, 12, 0, 0, 500000000, time.UTC)
	a := AbsSendTime{Time: now}
	payload := a.Marshal()
	require.Len(t, payload, 3)

	got, err := UnmarshalAbsSendTime(payload)
	require.NoError(t, err)

	wantNTP := NTPTimestamp(now)
	wantSecondsMod64 := (wantNTP >> 32) % 64

	gotNTP := NTPTimestamp(got.Time)
	gotSecondsMod64 := (gotNTP >> 32) % 64

	assert.Equal(t, wantSecondsMod64, gotSecondsMod64)
	assert.Equal(t, (wantNTP>>14)&0x3FFFF, (gotNTP>>14)&0x3FFFF)
}

func TestAbsSendTimeUnmarshalRejectsWrongLength(t *testing.T) {
	_, err := UnmarshalAbsSendTime([]byte{1, 2})
	assert.Error(t, err)
}

func TestWellKnownExtensionURIsAreDistinct(t *testing.T) {
	uris := []string{URIAbsSendTime, URICVO, URIAudioLevel, URITransportCC, URIAbsCaptureTime}
	seen := make(map[string]bool)
	for _, u := range uris {
		assert.False(t, seen[u], "duplicate URI: %s", u)
		seen[u] = true
	}
}
