package codecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestH264PacketizeFragmentationScenario6(t *testing.T) {
	nalu := make([]byte, 3500)
	nalu[0] = 0x65 // nri=0x60, type=5 (IDR slice)
	for i := 1; i < len(nalu); i++ {
		nalu[i] = byte(i)
	}
	accessUnit := JoinAnnexB([][]byte{nalu})

	p := &H264Packetizer{MaxPayloadSize: 1400}
	samples := p.PacketizeAccessUnit(accessUnit, 1000)

	require.Len(t, samples, 3)

	assert.Equal(t, byte(0x7C), samples[0].Payload[0])
	assert.Equal(t, byte(0x85), samples[0].Payload[1])
	assert.Equal(t, byte(0x7C), samples[1].Payload[0])
	assert.Equal(t, byte(0x05), samples[1].Payload[1])
	assert.Equal(t, byte(0x7C), samples[2].Payload[0])
	assert.Equal(t, byte(0x45), samples[2].Payload[1])

	assert.False(t, samples[0].Marker)
	assert.False(t, samples[1].Marker)
	assert.True(t, samples[2].Marker)
}

func TestH264SingleNALNoFragmentation(t *testing.T) {
	nalu := []byte{0x67, 1, 2, 3}
	p := NewH264Packetizer()
	samples := p.PacketizeAccessUnit(JoinAnnexB([][]byte{nalu}), 0)
	require.Len(t, samples, 1)
	assert.Equal(t, nalu, samples[0].Payload)
	assert.True(t, samples[0].Marker)
}

func TestH264DepacketizeFUARoundTrip(t *testing.T) {
	nalu := make([]byte, 3500)
	nalu[0] = 0x65
	for i := 1; i < len(nalu); i++ {
		nalu[i] = byte(i)
	}
	p := &H264Packetizer{MaxPayloadSize: 1400}
	samples := p.PacketizeAccessUnit(JoinAnnexB([][]byte{nalu}), 0)

	d := &H264Depacketizer{}
	var result []byte
	for _, s := range samples {
		out, err := d.Push(s.Payload, s.Marker)
		require.NoError(t, err)
		if out != nil {
			result = out
		}
	}
	assert.Equal(t, nalu, result)
}

func TestH264DepacketizeSingleNAL(t *testing.T) {
	d := &H264Depacketizer{}
	nalu := []byte{0x67, 1, 2, 3}
	out, err := d.Push(nalu, true)
	require.NoError(t, err)
	assert.Equal(t, nalu, out)
}

func TestH264DepacketizeMissingStartFragmentIgnored(t *testing.T) {
	d := &H264Depacketizer{}
	// Continuation fragment with no preceding start: ignored, no corruption.
	out, err := d.Push([]byte{0x7C, 0x05, 0xAA}, false)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Nil(t, d.fragment)
}

func TestSplitAndJoinAnnexBRoundTrip(t *testing.T) {
	nalus := [][]byte{{0x67, 1, 2}, {0x68, 3, 4}, {0x65, 5, 6, 7}}
	au := JoinAnnexB(nalus)
	split := SplitAnnexB(au)
	require.Len(t, split, 3)
	for i := range nalus {
		assert.Equal(t, nalus[i], split[i])
	}
}

func TestSplitAnnexBMixedStartCodeLengths(t *testing.T) {
	var buf []byte
	buf = append(buf, 0x00, 0x00, 0x00, 0x01) // 4-byte start code
	buf = append(buf, 0x67, 1, 2)
	buf = append(buf, 0x00, 0x00, 0x01) // 3-byte start code
	buf = append(buf, 0x68, 3, 4)

	split := SplitAnnexB(buf)
	require.Len(t, split, 2)
	assert.Equal(t, []byte{0x67, 1, 2}, split[0])
	assert.Equal(t, []byte{0x68, 3, 4}, split[1])
}
