package rtp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSendRejectsWildcardDestination(t *testing.T) {
	ch, err := NewChannel("127.0.0.1:0")
	require.NoError(t, err)
	defer ch.Close()

	err = ch.Send(&net.UDPAddr{IP: net.IPv4zero, Port: 5004}, []byte{0x80})
	assert.ErrorIs(t, err, ErrDestinationRequired)

	err = ch.Send(nil, []byte{0x80})
	assert.ErrorIs(t, err, ErrDestinationRequired)
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	ch, err := NewChannel("127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	err = ch.Send(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 5004}, []byte{0x80})
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestChannelSendReceiveRoundTrip(t *testing.T) {
	receiver, err := NewChannel("127.0.0.1:0")
	require.NoError(t, err)
	defer receiver.Close()

	received := make(chan ReceivedDatagram, 1)
	receiver.OnReceive = func(d ReceivedDatagram) {
		received <- d
	}
	receiver.Start()

	sender, err := NewChannel("127.0.0.1:0")
	require.NoError(t, err)
	defer sender.Close()

	dst := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: receiver.LocalPort()}
	payload := []byte{0x80, 0x60, 0x00, 0x01, 0, 0, 0, 0, 0, 0, 0, 0}
	require.NoError(t, sender.Send(dst, payload))

	select {
	case d := <-received:
		assert.Equal(t, PacketKindRTP, d.Kind)
		assert.Equal(t, payload, d.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestChannelDispatchClassifiesSTUN(t *testing.T) {
	ch, err := NewChannel("127.0.0.1:0")
	require.NoError(t, err)
	defer ch.Close()

	received := make(chan ReceivedDatagram, 1)
	ch.OnReceive = func(d ReceivedDatagram) { received <- d }

	ch.dispatch([]byte{0x00, 0x01, 0x00, 0x00}, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1})

	select {
	case d := <-received:
		assert.Equal(t, PacketKindSTUN, d.Kind)
	default:
		t.Fatal("expected synchronous dispatch")
	}
}

func TestDecodeXorMappedAddressIPv4(t *testing.T) {
	const magicCookie = 0x2112A442
	transactionID := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	wantIP := net.ParseIP("192.168.1.5").To4()
	wantPort := uint16(5004)

	value := make([]byte, 8)
	value[1] = 0x01
	xport := wantPort ^ uint16(magicCookie>>16)
	value[2] = byte(xport >> 8)
	value[3] = byte(xport)
	var xip [4]byte
	for i := 0; i < 4; i++ {
		xip[i] = wantIP[i] ^ byte(magicCookie>>(24-8*i))
	}
	copy(value[4:8], xip[:])

	addr, ok := decodeXorMappedAddress(value, magicCookie, transactionID)
	require.True(t, ok)
	assert.True(t, addr.IP.Equal(wantIP))
	assert.Equal(t, int(wantPort), addr.Port)
}
