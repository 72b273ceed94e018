package mediastream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/rtpmedia/pkg/rtp"
)

func TestVideoStreamVP8ReassemblesFrame(t *testing.T) {
	chA, _ := newLoopbackPair(t)
	base := NewMediaStream(0, SessionConfig{}, chA, NewRegistry())
	video := NewVideoStream(base, VideoCodecVP8)

	var gotFrame []byte
	video.events.On(EventVideoFrameReceived, func(ev Event) {
		gotFrame = ev.Payload.(VideoFramePayload).Frame
	})

	video.ProcessPacket(&rtp.Packet{
		Header:  rtp.Header{Marker: false},
		Payload: append([]byte{0x10}, []byte("first")...),
	})
	require.Nil(t, gotFrame)

	video.ProcessPacket(&rtp.Packet{
		Header:  rtp.Header{Marker: true},
		Payload: append([]byte{0x00}, []byte("second")...),
	})
	require.NotNil(t, gotFrame)
	assert.Equal(t, "firstsecond", string(gotFrame))
}

func TestVideoStreamDropsOversizedFrame(t *testing.T) {
	chA, _ := newLoopbackPair(t)
	base := NewMediaStream(0, SessionConfig{MaxReconstructedVideoFrameSize: 4}, chA, NewRegistry())
	video := NewVideoStream(base, VideoCodecVP8)

	fired := false
	video.events.On(EventVideoFrameReceived, func(ev Event) { fired = true })

	video.ProcessPacket(&rtp.Packet{
		Header:  rtp.Header{Marker: true},
		Payload: append([]byte{0x10}, []byte("toolong")...),
	})
	assert.False(t, fired)
}

func TestVideoStreamSendAccessUnitH264(t *testing.T) {
	chA, chB := newLoopbackPair(t)
	base := NewMediaStream(0, SessionConfig{}, chA, NewRegistry())
	base.SetLocalTrack(NewLocalTrack(MediaKindVideo, nil))
	base.SetDestination(chB.LocalAddr(), nil)
	video := NewVideoStream(base, VideoCodecH264)

	accessUnit := append([]byte{0, 0, 0, 1, 0x67, 1, 2, 3})
	err := video.SendAccessUnit(96, accessUnit, 0)
	require.NoError(t, err)
}
