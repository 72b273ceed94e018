package rtp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
)

// MaxDatagramSize is the hard packet-size cap the channel enforces on
// receive; larger datagrams are dropped with a log rather than handed
// upstream (§4.2).
const MaxDatagramSize = 256 * 1024

// PacketKind classifies an inbound datagram as the channel's receive loop
// demultiplexes it.
type PacketKind int

const (
	// PacketKindRTP is an RTP or RTCP packet (version-2 framed).
	PacketKindRTP PacketKind = iota
	// PacketKindSTUN is a STUN message (first byte 0x00 or 0x01).
	PacketKindSTUN
	// PacketKindTURNData is a TURN data indication; Payload and Peer are
	// already unwrapped to the inner media packet and its origin.
	PacketKindTURNData
)

// ErrChannelClosed is returned by Send once the channel has been closed.
var ErrChannelClosed = errors.New("rtp: channel closed")

// ErrDestinationRequired is returned by Send when dst is nil or a wildcard
// address (§4.2, §8 "wildcard destination addresses cause
// DestinationAddressRequired").
var ErrDestinationRequired = errors.New("rtp: destination address required")

// channelState mirrors §4.2's "Created -> Started -> Closed" lifecycle.
type channelState int32

const (
	channelCreated channelState = iota
	channelStarted
	channelClosed
)

// ReceivedDatagram is one demultiplexed inbound datagram handed to the
// channel's receive callback.
type ReceivedDatagram struct {
	Kind      PacketKind
	Payload   []byte
	Peer      net.Addr
	LocalPort int
}

// Channel owns one bound UDP socket used for RTP (and, when not
// multiplexed, a dedicated RTCP socket is a second Channel instance).
// Receive classifies each datagram per §4.2's demux rules before handing
// it to OnReceive.
type Channel struct {
	conn      *net.UDPConn
	localPort int

	state int32 // atomic channelState

	OnReceive func(ReceivedDatagram)
	OnError   func(*TransportError)

	wg       sync.WaitGroup
	closeMu  sync.Mutex
	closedCh chan struct{}
}

// NewChannel binds a UDP socket at bindAddr (host:port, or host:0 for an
// ephemeral port).
func NewChannel(bindAddr string) (*Channel, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("rtp: resolve bind address %q: %w", bindAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("rtp: listen udp %q: %w", bindAddr, err)
	}
	localPort := 0
	if udpAddr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		localPort = udpAddr.Port
	}
	return &Channel{
		conn:      conn,
		localPort: localPort,
		closedCh:  make(chan struct{}),
	}, nil
}

// LocalPort returns the bound local UDP port.
func (c *Channel) LocalPort() int {
	return c.localPort
}

// LocalAddr returns the bound local address.
func (c *Channel) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Start launches the receive loop. Calling Start more than once, or after
// Close, is a no-op (§4.2 receiver state machine: "BeginReceive is
// reentrancy-safe").
func (c *Channel) Start() {
	if !atomic.CompareAndSwapInt32(&c.state, int32(channelCreated), int32(channelStarted)) {
		return
	}
	c.wg.Add(1)
	go c.receiveLoop()
}

func (c *Channel) receiveLoop() {
	defer c.wg.Done()
	buf := make([]byte, MaxDatagramSize+1)
	for {
		if channelState(atomic.LoadInt32(&c.state)) == channelClosed {
			return
		}
		n, peer, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if channelState(atomic.LoadInt32(&c.state)) == channelClosed {
				return
			}
			if isConnReset(err) {
				// ICMP-triggered reset: swallow and keep receiving (§4.2).
				continue
			}
			var netErr net.Error
			if errors.As(err, &netErr) {
				log.Printf("rtp: channel receive error (ignored): %v", err)
				continue
			}
			// Argument/disposal-class error: close the channel.
			c.reportError(newDropError(ErrorKindSocket, -1, "fatal receive error, closing channel", err))
			c.Close()
			return
		}

		if n > MaxDatagramSize {
			log.Printf("rtp: dropping oversized datagram from %s: %d bytes", peer, n)
			continue
		}

		c.dispatch(buf[:n], peer)
	}
}

func (c *Channel) dispatch(data []byte, peer net.Addr) {
	if c.OnReceive == nil {
		return
	}
	if len(data) >= 2 && data[0] == 0x00 && data[1] == 0x17 {
		payload, realPeer, ok := unwrapTURNDataIndication(data, peer)
		if !ok {
			return
		}
		c.OnReceive(ReceivedDatagram{Kind: PacketKindTURNData, Payload: payload, Peer: realPeer, LocalPort: c.localPort})
		return
	}
	if len(data) >= 1 && (data[0] == 0x00 || data[0] == 0x01) {
		c.OnReceive(ReceivedDatagram{Kind: PacketKindSTUN, Payload: data, Peer: peer, LocalPort: c.localPort})
		return
	}
	c.OnReceive(ReceivedDatagram{Kind: PacketKindRTP, Payload: data, Peer: peer, LocalPort: c.localPort})
}

// Send transmits bytes to dst. Wildcard destinations and a closed channel
// are rejected without touching the socket (§4.2).
func (c *Channel) Send(dst net.Addr, b []byte) error {
	if channelState(atomic.LoadInt32(&c.state)) == channelClosed {
		return ErrChannelClosed
	}
	udpDst, ok := dst.(*net.UDPAddr)
	if !ok || udpDst == nil || len(b) == 0 {
		return ErrDestinationRequired
	}
	if udpDst.IP == nil || udpDst.IP.IsUnspecified() {
		return ErrDestinationRequired
	}

	target := mapToDualStack(c.conn, udpDst)

	if channelState(atomic.LoadInt32(&c.state)) == channelCreated {
		c.Start()
	}

	_, err := c.conn.WriteToUDP(b, target)
	return err
}

// Close shuts down the socket and stops the receive loop. Idempotent.
func (c *Channel) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if channelState(atomic.LoadInt32(&c.state)) == channelClosed {
		return nil
	}
	atomic.StoreInt32(&c.state, int32(channelClosed))
	err := c.conn.Close()
	select {
	case <-c.closedCh:
	default:
		close(c.closedCh)
	}
	c.wg.Wait()
	return err
}

func (c *Channel) reportError(err *TransportError) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

func isConnReset(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Err != nil {
		return opErr.Err.Error() == "connection reset by peer"
	}
	return false
}

// mapToDualStack rewrites dst to an IPv4-mapped IPv6 address when the bound
// socket is dual-stack IPv6 and dst is a bare IPv4 address (§4.2, §9
// "dual-stack sockets").
func mapToDualStack(conn *net.UDPConn, dst *net.UDPAddr) *net.UDPAddr {
	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || localAddr.IP == nil {
		return dst
	}
	if localAddr.IP.To4() != nil {
		return dst // bound socket is IPv4, nothing to map
	}
	if dst.IP.To4() == nil {
		return dst // already IPv6
	}
	mapped := &net.UDPAddr{IP: dst.IP.To16(), Port: dst.Port, Zone: dst.Zone}
	return mapped
}

// unwrapTURNDataIndication extracts the DATA and XOR-PEER-ADDRESS
// attributes from a TURN data-indication STUN message (RFC 5766 §10.4),
// re-dispatching the inner payload as if it arrived directly from the
// peer. Returns ok=false if the message is too short or malformed.
func unwrapTURNDataIndication(buf []byte, relay net.Addr) (payload []byte, peer net.Addr, ok bool) {
	const stunHeaderLen = 20
	if len(buf) < stunHeaderLen {
		return nil, nil, false
	}
	magicCookie := binary.BigEndian.Uint32(buf[4:8])
	transactionID := buf[8:20]

	offset := stunHeaderLen
	for offset+4 <= len(buf) {
		attrType := binary.BigEndian.Uint16(buf[offset : offset+2])
		attrLen := int(binary.BigEndian.Uint16(buf[offset+2 : offset+4]))
		valueStart := offset + 4
		valueEnd := valueStart + attrLen
		if valueEnd > len(buf) {
			return nil, nil, false
		}
		value := buf[valueStart:valueEnd]

		switch attrType {
		case 0x0013: // DATA
			payload = value
		case 0x0012: // XOR-PEER-ADDRESS
			if p, ok := decodeXorMappedAddress(value, magicCookie, transactionID); ok {
				peer = p
			}
		}

		padded := attrLen
		if padded%4 != 0 {
			padded += 4 - padded%4
		}
		offset = valueStart + padded
	}

	if payload == nil {
		return nil, nil, false
	}
	if peer == nil {
		peer = relay
	}
	return payload, peer, true
}

func decodeXorMappedAddress(value []byte, magicCookie uint32, transactionID []byte) (*net.UDPAddr, bool) {
	if len(value) < 8 {
		return nil, false
	}
	family := value[1]
	xport := binary.BigEndian.Uint16(value[2:4])
	port := xport ^ uint16(magicCookie>>16)

	switch family {
	case 0x01: // IPv4
		if len(value) < 8 {
			return nil, false
		}
		var ip [4]byte
		xip := binary.BigEndian.Uint32(value[4:8])
		binary.BigEndian.PutUint32(ip[:], xip^magicCookie)
		return &net.UDPAddr{IP: net.IP(ip[:]), Port: int(port)}, true
	case 0x02: // IPv6
		if len(value) < 20 {
			return nil, false
		}
		xorBytes := make([]byte, 16)
		copy(xorBytes, value[4:20])
		var cookieAndTx [16]byte
		binary.BigEndian.PutUint32(cookieAndTx[0:4], magicCookie)
		copy(cookieAndTx[4:16], transactionID)
		ip := make([]byte, 16)
		for i := range ip {
			ip[i] = xorBytes[i] ^ cookieAndTx[i]
		}
		return &net.UDPAddr{IP: net.IP(ip), Port: int(port)}, true
	default:
		return nil, false
	}
}
