package mediastream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalTrackAppendsTelephoneEventForAudio(t *testing.T) {
	track := NewLocalTrack(MediaKindAudio, []Capability{{PayloadType: 0, FormatName: "PCMU", ClockRate: 8000}})
	_, ok := track.CapabilityFor(DefaultDTMFPayloadType)
	require.True(t, ok)
}

func TestNewLocalTrackDoesNotDuplicateTelephoneEvent(t *testing.T) {
	track := NewLocalTrack(MediaKindAudio, []Capability{
		{PayloadType: 101, FormatName: "telephone-event", ClockRate: 8000},
	})
	count := 0
	for _, c := range track.Capabilities {
		if c.FormatName == "telephone-event" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestNewLocalTrackVideoHasNoTelephoneEvent(t *testing.T) {
	track := NewLocalTrack(MediaKindVideo, nil)
	_, ok := track.CapabilityFor(DefaultDTMFPayloadType)
	assert.False(t, ok)
}

func TestNextSequenceWrapsModulo16Bit(t *testing.T) {
	track := NewLocalTrack(MediaKindVideo, nil)
	track.seq = 0xFFFF
	next := track.NextSequence()
	assert.Equal(t, uint16(0), next)
}

func TestStreamStatusGates(t *testing.T) {
	assert.True(t, StatusSendRecv.CanSend())
	assert.True(t, StatusSendRecv.CanReceive())
	assert.True(t, StatusSendOnly.CanSend())
	assert.False(t, StatusSendOnly.CanReceive())
	assert.True(t, StatusRecvOnly.CanReceive())
	assert.False(t, StatusRecvOnly.CanSend())
	assert.False(t, StatusInactive.CanSend())
	assert.False(t, StatusInactive.CanReceive())
}
