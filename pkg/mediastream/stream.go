package mediastream

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"

	"github.com/arzzra/rtpmedia/pkg/metrics"
	"github.com/arzzra/rtpmedia/pkg/rtp"
)

// Stream lifecycle states, driven by looplab/fsm the same way the teacher
// drives call and subscription state machines (§3 lifecycle).
const (
	streamStateOpen   = "open"
	streamStateClosed = "closed"
)

func newStreamLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		streamStateOpen,
		fsm.Events{
			{Name: "close", Src: []string{streamStateOpen}, Dst: streamStateClosed},
		},
		nil,
	)
}

// PacketProcessor is the per-kind specialisation hook MediaStream dispatches
// a fully validated, unprotected, in-order RTP packet to (§4.4 step 7: video
// calls the depacketiser; audio/text emit the raw packet). Implementations
// must not block.
type PacketProcessor interface {
	ProcessPacket(pkt *rtp.Packet)
}

// MediaStream is the base carrier of one local/remote track pair over a
// shared UDP channel: it owns the send path, the ingress pipeline, the
// pending-packet cache, the optional reorder buffer and the optional
// security context (§3).
type MediaStream struct {
	Index  StreamIndex
	Config SessionConfig

	mu sync.RWMutex

	local  *MediaStreamTrack
	remote *MediaStreamTrack

	channel *rtp.Channel

	rtpDest  net.Addr
	rtcpDest net.Addr

	secure *rtp.SecureContext

	reorder *rtp.ReorderBuffer

	pending *rtp.PendingQueue

	rtcpSession *rtp.RTCPSession

	events *Registry

	lifecycle *fsm.FSM

	twccCounter uint32 // atomic: packed as uint16 sequence counter

	processor PacketProcessor

	extMap rtp.ExtensionMap

	metrics *metrics.Collector

	reorderCancel context.CancelFunc
}

// NewMediaStream constructs a stream bound to channel, at index within its
// owning session.
func NewMediaStream(index StreamIndex, cfg SessionConfig, channel *rtp.Channel, events *Registry) *MediaStream {
	return &MediaStream{
		Index:     index,
		Config:    cfg,
		channel:   channel,
		pending:   rtp.NewPendingQueue(),
		events:    events,
		extMap:    make(rtp.ExtensionMap),
		lifecycle: newStreamLifecycle(),
	}
}

// SetProcessor installs the per-kind specialisation (audio/video/text).
func (s *MediaStream) SetProcessor(p PacketProcessor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processor = p
}

// SetLocalTrack attaches the local track as SDP negotiation settles it.
func (s *MediaStream) SetLocalTrack(t *MediaStreamTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local = t
}

// SetRemoteTrack attaches the remote track description.
func (s *MediaStream) SetRemoteTrack(t *MediaStreamTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = t
}

// LocalTrack returns the attached local track, or nil.
func (s *MediaStream) LocalTrack() *MediaStreamTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local
}

// RemoteTrack returns the attached remote track, or nil.
func (s *MediaStream) RemoteTrack() *MediaStreamTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remote
}

// SetDestination sets the RTP and RTCP destination endpoints; rtcpDest may
// be nil.
func (s *MediaStream) SetDestination(rtpDest, rtcpDest net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rtpDest = rtpDest
	s.rtcpDest = rtcpDest
}

// SetReorderBuffer installs a reorder buffer for the ingress path. If a
// metrics.Collector is already installed, its forced-drain counter is wired
// in immediately; otherwise SetMetrics wires it in when it is called later.
// A background tick drives Flush so a stalled head-of-line packet is still
// force-emitted even when no further packet ever arrives (§4.5).
func (s *MediaStream) SetReorderBuffer(cfg rtp.ReorderBufferConfig) {
	rb := rtp.NewReorderBuffer(cfg)

	s.mu.Lock()
	if s.reorderCancel != nil {
		s.reorderCancel()
	}
	s.reorder = rb
	s.wireReorderMetricsLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.reorderCancel = cancel
	s.mu.Unlock()

	go s.runReorderFlushLoop(ctx, rb)
}

// wireReorderMetricsLocked must be called with s.mu held. It (re)installs
// the reorder buffer's forced-drain callback against the currently
// installed metrics collector, if both are present.
func (s *MediaStream) wireReorderMetricsLocked() {
	if s.reorder == nil {
		return
	}
	m := s.metrics
	if m == nil {
		return
	}
	idx := strconv.Itoa(int(s.Index))
	s.reorder.SetForceDrainCallback(func() { m.RecordReorderDrain(idx) })
}

// wireTimeoutMetricsLocked must be called with s.mu held. It (re)installs
// the RTCPSession timeout observer against the currently installed metrics
// collector, if both are present.
func (s *MediaStream) wireTimeoutMetricsLocked() {
	if s.rtcpSession == nil {
		return
	}
	m := s.metrics
	if m == nil {
		return
	}
	idx := strconv.Itoa(int(s.Index))
	s.rtcpSession.SetTimeoutObserver(func(int) { m.RecordTimeout(idx) })
}

// runReorderFlushLoop periodically drives rb.Flush so a stalled head-of-line
// packet is force-emitted even without a subsequent arrival, until ctx is
// cancelled (by a later SetReorderBuffer call or Close).
func (s *MediaStream) runReorderFlushLoop(ctx context.Context, rb *rtp.ReorderBuffer) {
	interval := rb.DropTimeout() / 4
	if interval <= 0 {
		interval = 25 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ready := range rb.Flush(time.Now()) {
				s.deliver(ready, nil)
			}
		}
	}
}

// SetMetrics installs the Prometheus collector this stream records against.
// Calling it after SetReorderBuffer/SetRTCPSession re-wires their callbacks
// to the new collector; calling it before wires new ones as they attach.
func (s *MediaStream) SetMetrics(m *metrics.Collector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	s.wireReorderMetricsLocked()
	s.wireTimeoutMetricsLocked()
}

// SetExtensionMap installs the negotiated header-extension id assignment.
func (s *MediaStream) SetExtensionMap(m rtp.ExtensionMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extMap = m
}

// SetRTCPSession installs the RTCP bookkeeping component. If a
// metrics.Collector is already installed, its timeout counter is wired into
// rs's OnTimeout notifications immediately.
func (s *MediaStream) SetRTCPSession(rs *rtp.RTCPSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rtcpSession = rs
	s.wireTimeoutMetricsLocked()
}

// IsClosed reports whether Close has been called.
func (s *MediaStream) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifecycle.Current() == streamStateClosed
}

// Close terminates the stream: further sends are rejected, the pending
// cache is cleared, and a close-state-changed event fires (§3 lifecycle).
// Idempotent (§8: "Close; Close is a no-op after the first") — the fsm
// transition is a no-op once already in streamStateClosed.
func (s *MediaStream) Close() {
	s.mu.Lock()
	if !s.lifecycle.Can("close") {
		s.mu.Unlock()
		return
	}
	_ = s.lifecycle.Event(context.Background(), "close")
	if s.rtcpSession != nil {
		s.rtcpSession.Close()
	}
	if s.reorderCancel != nil {
		s.reorderCancel()
	}
	s.pending.Clear()
	s.mu.Unlock()

	s.fire(EventCloseStateChanged, CloseStatePayload{Closed: true})
}

// SetSecurityContext installs sc once DTLS-SRTP (or SDES) keying completes,
// then atomically drains and re-feeds any packets cached while keying was
// in flight (§4.6, §9: "drain must observe the current value of IsClosed
// after snapshot").
func (s *MediaStream) SetSecurityContext(sc *rtp.SecureContext) {
	s.mu.Lock()
	s.secure = sc
	s.mu.Unlock()

	drained := s.pending.DrainAndClear()

	s.mu.RLock()
	collector := s.metrics
	s.mu.RUnlock()
	if collector != nil {
		collector.SetPendingQueueDepth(strconv.Itoa(int(s.Index)), 0)
	}

	for _, pkg := range drained {
		if s.IsClosed() {
			return
		}
		s.OnReceiveRTPPacket(pkg.Header, pkg.LocalPort, pkg.RemoteEndpoint, pkg.Raw)
	}
}

// SendRtpRaw assembles and transmits one RTP packet carrying payload,
// applying SRTP protection if configured (§4.3).
func (s *MediaStream) SendRtpRaw(payloadType uint8, payload []byte, timestamp uint32, marker bool, extensions *rtp.ExtensionBuilder) error {
	s.mu.RLock()
	closed := s.lifecycle.Current() == streamStateClosed
	local := s.local
	status := StatusInactive
	if local != nil {
		status = local.Status
	}
	secure := s.secure
	dest := s.rtpDest
	channel := s.channel
	rtcpSession := s.rtcpSession
	collector := s.metrics
	extMap := s.extMap
	s.mu.RUnlock()

	if closed {
		return rtp.NewConfigError(int(s.Index), "send on closed stream", nil)
	}
	if local == nil {
		return rtp.NewConfigError(int(s.Index), "no local track attached", nil)
	}
	if !status.CanSend() {
		return rtp.NewConfigError(int(s.Index), "stream status does not permit sending", nil)
	}
	if s.Config.SecureMedia != SecureMediaNone && !secure.Ready() {
		return rtp.NewConfigError(int(s.Index), "secure context not installed", nil)
	}

	header := rtp.Header{
		Version:        2,
		Marker:         marker,
		PayloadType:    payloadType & 0x7F,
		SequenceNumber: local.NextSequence(),
		Timestamp:      timestamp,
		SSRC:           local.SSRC,
	}

	if twccID := extMap.IDFor(rtp.URITransportCC); twccID != 0 {
		if extensions == nil {
			extensions = &rtp.ExtensionBuilder{}
		}
		extensions.Add(twccID, rtp.TWCCSequence{Sequence: s.nextTWCCSequence()}.Marshal())
	}

	if extensions != nil && !extensions.Empty() {
		profile, extPayload, err := extensions.Build()
		if err != nil {
			return err
		}
		header.Extension = true
		header.ExtensionProfile = profile
		header.ExtensionPayload = extPayload
	}

	pkt := &rtp.Packet{Header: header, Payload: payload}

	extra := 0
	if secure.Ready() {
		extra = rtp.SRTPMaxPrefixLength
	}
	buf, err := pkt.Marshal(extra)
	if err != nil {
		return err
	}

	sendLen := len(buf) - extra
	if secure.Ready() {
		n, err := secure.ProtectRTP(buf)
		if err != nil {
			return fmt.Errorf("mediastream: protect rtp: %w", err)
		}
		sendLen = n
	}

	if channel == nil || dest == nil {
		return rtp.NewConfigError(int(s.Index), "no destination endpoint set", nil)
	}
	if err := channel.Send(dest, buf[:sendLen]); err != nil {
		return err
	}

	if rtcpSession != nil {
		rtcpSession.RecordSend(header.SequenceNumber, len(payload))
	}
	if collector != nil {
		collector.RecordSend(local.Kind.String(), len(payload))
	}
	return nil
}

// nextTWCCSequence atomically increments and returns the next
// transport-wide-CC sequence to stamp on an outbound packet, wrapping
// modulo 2^16 (§3, §4.9).
func (s *MediaStream) nextTWCCSequence() uint16 {
	return uint16(atomic.AddUint32(&s.twccCounter, 1))
}

// OnReceiveRTPPacket runs the ingress pipeline for one inbound datagram
// already demultiplexed as RTP (§4.4).
func (s *MediaStream) OnReceiveRTPPacket(header rtp.Header, localPort int, remote net.Addr, raw []byte) {
	s.mu.RLock()
	closed := s.lifecycle.Current() == streamStateClosed
	remoteTrack := s.remote
	secure := s.secure
	reorder := s.reorder
	extMap := s.extMap
	dtmfPT := s.Config.dtmfPayloadType()
	s.mu.RUnlock()

	if closed {
		return
	}

	isDTMF := header.PayloadType == dtmfPT

	if isDTMF {
		buf, ok := s.unprotect(secure, raw, true)
		if !ok {
			return
		}
		pkt, err := rtp.ParsePacket(buf)
		if err != nil {
			return
		}
		ev, err := rtp.UnmarshalEvent(pkt.Payload)
		if err != nil {
			return
		}
		s.fire(EventRtpEvent, RtpEventPayload{Event: ev})
		return
	}

	if remoteTrack != nil && remoteTrack.SSRC == 0 {
		if accepted, newDest := s.adjustRemoteEndPoint(remote); accepted {
			s.mu.Lock()
			s.rtpDest = newDest
			if s.remote != nil {
				s.remote.SSRC = header.SSRC
			}
			s.mu.Unlock()
		}
	}

	if remoteTrack != nil {
		if remoteTrack.hasLastRemoteSeq &&
			!rtp.IsConsecutive(remoteTrack.LastRemoteSequence, header.SequenceNumber) &&
			!rtp.IsSequenceWrap(remoteTrack.LastRemoteSequence, header.SequenceNumber) {
			// Sequence jump: logged, not fatal (§4.4 step 3, §7 Sequence kind).
			log.Printf("mediastream[%d]: rtp sequence jump from %d to %d",
				s.Index, remoteTrack.LastRemoteSequence, header.SequenceNumber)
		}
		s.mu.Lock()
		if s.remote != nil {
			s.remote.LastRemoteSequence = header.SequenceNumber
			s.remote.hasLastRemoteSeq = true
		}
		s.mu.Unlock()

		rtp.WalkExtensions(&header, func(raw rtp.RawExtension) {
			uri := extMap.URIFor(raw.ID)
			s.fire(EventHeaderExtensionReceived, HeaderExtensionPayload{URI: uri, Raw: raw})
		})
	}

	buf, ok := s.unprotect(secure, raw, false)
	if !ok {
		return
	}

	pkt, err := rtp.ParsePacket(buf)
	if err != nil {
		return
	}
	pkt.Header = header

	if remoteTrack != nil {
		if _, known := remoteTrack.CapabilityFor(header.PayloadType); !known && len(remoteTrack.Capabilities) > 0 {
			return
		}
	}

	if reorder != nil {
		for _, ready := range reorder.Insert(pkt, time.Now()) {
			s.deliver(ready, remote)
		}
		return
	}
	s.deliver(pkt, remote)
}

// deliver finalises one decoded, in-order packet: RTCP and metrics
// bookkeeping (using the clock rate negotiated for its payload type, not a
// fixed one, so video jitter isn't computed against the audio clock), the
// per-kind processor, and the consumer-facing event. remote is nil when
// called from the reorder-buffer flush loop rather than a fresh datagram
// (§4.4, §4.5).
func (s *MediaStream) deliver(p *rtp.Packet, remote net.Addr) {
	s.mu.RLock()
	remoteTrack := s.remote
	rtcpSession := s.rtcpSession
	processor := s.processor
	collector := s.metrics
	s.mu.RUnlock()

	clockRate := uint32(DefaultAudioClockRate)
	kind := "unknown"
	if remoteTrack != nil {
		kind = remoteTrack.Kind.String()
		if c, known := remoteTrack.CapabilityFor(p.Header.PayloadType); known && c.ClockRate > 0 {
			clockRate = c.ClockRate
		}
	}

	if rtcpSession != nil {
		rtcpSession.RecordReceive(p.Header.SSRC, p.Header.SequenceNumber, p.Header.Timestamp, time.Now(), clockRate)
	}
	if collector != nil {
		collector.RecordReceive(kind, len(p.Payload))
	}
	if processor != nil {
		processor.ProcessPacket(p)
	}
	s.fire(EventRtpPacketReceived, RtpPacketPayload{Packet: p, Remote: remote})
}

// unprotect applies the SRTP unprotect closure when present. If it is
// absent and the packet is not DTMF, it is cached in the pending queue
// (§4.6) unless the stream is closed. Returns ok=false when the caller
// should stop processing this packet.
func (s *MediaStream) unprotect(secure *rtp.SecureContext, raw []byte, isDTMF bool) ([]byte, bool) {
	if secure.Ready() {
		buf := append([]byte(nil), raw...)
		n, err := secure.UnprotectRTP(buf)
		if err != nil {
			if !isDTMF {
				return nil, false
			}
			s.cachePending(raw)
			return nil, false
		}
		return buf[:n], true
	}

	if s.Config.SecureMedia == SecureMediaNone {
		return append([]byte(nil), raw...), true
	}

	if !isDTMF {
		s.cachePending(raw)
	}
	return nil, false
}

func (s *MediaStream) cachePending(raw []byte) {
	if s.IsClosed() {
		return
	}
	h, _, err := rtp.Parse(raw)
	if err != nil {
		return
	}
	s.pending.Push(rtp.PendingPackage{
		Header: *h,
		Raw:    append([]byte(nil), raw...),
	})

	s.mu.RLock()
	collector := s.metrics
	s.mu.RUnlock()
	if collector != nil {
		collector.SetPendingQueueDepth(strconv.Itoa(int(s.Index)), s.pending.Len())
	}
}

// adjustRemoteEndPoint implements §4.4's NAT-aware endpoint fixup: exact
// match accepts outright; otherwise AcceptRtpFromAny, or a private-expected
// vs. public-observed address pair, accepts and rewrites the destination.
func (s *MediaStream) adjustRemoteEndPoint(observed net.Addr) (accepted bool, newDest net.Addr) {
	s.mu.RLock()
	expected := s.rtpDest
	acceptAny := s.Config.AcceptRtpFromAny
	s.mu.RUnlock()

	observedUDP, ok := observed.(*net.UDPAddr)
	if !ok {
		return false, nil
	}

	if expected == nil {
		return true, observedUDP
	}
	expectedUDP, ok := expected.(*net.UDPAddr)
	if !ok {
		return false, nil
	}

	if expectedUDP.IP.Equal(observedUDP.IP) && expectedUDP.Port == observedUDP.Port {
		return true, observedUDP
	}

	if acceptAny {
		return true, observedUDP
	}

	if isPrivateIP(expectedUDP.IP) && !isPrivateIP(observedUDP.IP) {
		return true, observedUDP
	}

	return false, nil
}

func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	privateBlocks := []string{
		"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "127.0.0.0/8", "fc00::/7", "::1/128",
	}
	for _, block := range privateBlocks {
		_, cidr, err := net.ParseCIDR(block)
		if err == nil && cidr.Contains(ip) {
			return true
		}
	}
	return false
}

func (s *MediaStream) fire(kind RtpEventKind, payload interface{}) {
	if s.events == nil {
		return
	}
	s.events.Fire(Event{Kind: kind, StreamIndex: s.Index, Payload: payload})
}
