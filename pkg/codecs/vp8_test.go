package codecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVP8PacketizeSinglePacket(t *testing.T) {
	p := NewVP8Packetizer()
	frame := []byte{1, 2, 3, 4}
	samples := p.Packetize(frame, 9000)
	require.Len(t, samples, 1)
	assert.Equal(t, byte(vp8StartBit), samples[0].Payload[0])
	assert.Equal(t, frame, samples[0].Payload[1:])
	assert.True(t, samples[0].Marker)
}

func TestVP8PacketizeFragmentsAcrossMTU(t *testing.T) {
	p := &VP8Packetizer{MaxPayloadSize: 4}
	frame := []byte{1, 2, 3, 4, 5, 6}
	samples := p.Packetize(frame, 0)
	require.Len(t, samples, 2)
	assert.Equal(t, byte(vp8StartBit), samples[0].Payload[0])
	assert.False(t, samples[0].Marker)
	assert.Equal(t, byte(0x00), samples[1].Payload[0])
	assert.True(t, samples[1].Marker)
}

func TestVP8DepacketizeRoundTrip(t *testing.T) {
	p := &VP8Packetizer{MaxPayloadSize: 4}
	frame := []byte{1, 2, 3, 4, 5, 6}
	samples := p.Packetize(frame, 0)

	d := &VP8Depacketizer{}
	var result []byte
	for _, s := range samples {
		out, err := d.Push(s.Payload, s.Marker)
		require.NoError(t, err)
		if out != nil {
			result = out
		}
	}
	assert.Equal(t, frame, result)
}

func TestVP8DepacketizeContinuationWithoutStartRejected(t *testing.T) {
	d := &VP8Depacketizer{}
	_, err := d.Push([]byte{0x00, 1, 2}, false)
	assert.Error(t, err)
}
