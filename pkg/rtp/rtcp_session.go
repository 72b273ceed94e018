package rtp

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// RTCPReportPeriod is the default interval between sender/receiver report
// emissions (§6).
const RTCPReportPeriod = 10 * time.Second

// NoRTPTimeout is the silence duration after which a stream is considered
// dead (§6, §8 scenario driving BYE + close).
const NoRTPTimeout = 35 * time.Second

// RTCPStatistics tracks the running per-SSRC counters an RTCPSession needs
// to build sender/receiver reports (RFC 3550 §6.4, Appendix A.8).
type RTCPStatistics struct {
	SSRC              uint32
	PacketsSent       uint32
	OctetsSent        uint32
	PacketsReceived   uint32
	ExpectedMax       uint32
	LastSeq           uint32
	Jitter            float64
	lastTransit       int64
	LastSRReceiptTime time.Time
	LastSRNTP         uint64
}

// RTCPSessionCallbacks is the set of notifications an RTCPSession raises.
// Per §9's "invert cyclic back-references" design note the session never
// holds a pointer back to its owning MediaStream; it carries only the
// stream's index and calls back through these hooks.
type RTCPSessionCallbacks struct {
	// OnTimeout fires once NoRTPTimeout has passed with no RTP sent or
	// received and no RTCP report received.
	OnTimeout func(streamIndex int)
	// OnSendReport is called with a freshly built SR/RR the caller should
	// protect (if a SecureContext is installed) and transmit.
	OnSendReport func(streamIndex int, report []byte)
	// OnReport is called when an inbound RTCP compound packet is parsed.
	OnReport func(streamIndex int, sr *SenderReport, rr *ReceiverReport)
}

// RTCPSession owns the report timers and per-source statistics for one
// MediaStream, identified only by its index within the owning session
// (§9 design note: "RTCP session holds the stream index and emits events
// the stream consumes").
type RTCPSession struct {
	streamIndex int
	localSSRC   uint32
	cname       string

	period time.Duration

	mu         sync.Mutex
	stats      map[uint32]*RTCPStatistics
	lastActive time.Time

	localActive int32 // atomic: 1 once the local track has sent at least one packet

	callbacks       RTCPSessionCallbacks
	timeoutObserver func(streamIndex int)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRTCPSession constructs a session for streamIndex. The first report is
// scheduled after a random offset in [1s, 1s+period) per RFC 3550 Appendix
// A.7's anti-synchronisation jitter, falling back to [1s, 11s) when period
// is unset.
func NewRTCPSession(streamIndex int, localSSRC uint32, cname string, callbacks RTCPSessionCallbacks) *RTCPSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &RTCPSession{
		streamIndex: streamIndex,
		localSSRC:   localSSRC,
		cname:       cname,
		period:      RTCPReportPeriod,
		stats:       make(map[uint32]*RTCPStatistics),
		lastActive:  time.Now(),
		callbacks:   callbacks,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the report and timeout timers.
func (rs *RTCPSession) Start() {
	rs.wg.Add(1)
	go rs.loop()
}

// Close stops the timers. Idempotent.
func (rs *RTCPSession) Close() {
	rs.cancel()
	rs.wg.Wait()
}

func (rs *RTCPSession) loop() {
	defer rs.wg.Done()

	initialMax := rs.period
	if initialMax <= 0 {
		initialMax = 10 * time.Second
	}
	offset := time.Second + time.Duration(rand.Int63n(int64(initialMax)))
	timer := time.NewTimer(offset)
	defer timer.Stop()

	checkInterval := NoRTPTimeout / 7
	if checkInterval <= 0 {
		checkInterval = time.Second
	}
	timeoutTicker := time.NewTicker(checkInterval)
	defer timeoutTicker.Stop()

	for {
		select {
		case <-rs.ctx.Done():
			return
		case <-timer.C:
			rs.emitReport()
			timer.Reset(rs.period)
		case <-timeoutTicker.C:
			rs.checkTimeout()
		}
	}
}

func (rs *RTCPSession) checkTimeout() {
	rs.mu.Lock()
	last := rs.lastActive
	observer := rs.timeoutObserver
	rs.mu.Unlock()
	if time.Since(last) < NoRTPTimeout {
		return
	}
	if rs.callbacks.OnTimeout != nil {
		rs.callbacks.OnTimeout(rs.streamIndex)
	}
	if observer != nil {
		observer(rs.streamIndex)
	}
}

// SetTimeoutObserver installs an additional OnTimeout notification invoked
// alongside whatever callback was supplied at construction, without
// requiring the session to be rebuilt. MediaStream uses this to wire metrics
// in after SetRTCPSession, preserving the "invert cyclic back-references"
// rule above: the session still never holds a pointer back to its owner.
func (rs *RTCPSession) SetTimeoutObserver(fn func(streamIndex int)) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.timeoutObserver = fn
}

// RecordSend updates sender-side statistics for an outgoing RTP packet.
func (rs *RTCPSession) RecordSend(seq uint16, payloadLen int) {
	atomic.StoreInt32(&rs.localActive, 1)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	st := rs.statFor(rs.localSSRC)
	st.PacketsSent++
	st.OctetsSent += uint32(payloadLen)
	rs.lastActive = time.Now()
}

// RecordReceive updates receiver-side jitter/loss tracking for an inbound
// RTP packet (RFC 3550 Appendix A.8).
func (rs *RTCPSession) RecordReceive(ssrc uint32, seq uint16, rtpTimestamp uint32, arrival time.Time, clockRate uint32) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	st := rs.statFor(ssrc)
	st.PacketsReceived++
	seq32 := uint32(seq)
	if st.ExpectedMax == 0 || IsSequenceWrap(uint16(st.LastSeq), seq) {
		st.ExpectedMax = seq32
	} else if seq32 > st.ExpectedMax {
		st.ExpectedMax = seq32
	}
	st.LastSeq = seq32

	if clockRate > 0 {
		arrivalRTP := int64(arrival.Unix())*int64(clockRate) + int64(arrival.Nanosecond())*int64(clockRate)/int64(time.Second)
		transit := arrivalRTP - int64(rtpTimestamp)
		if st.lastTransit != 0 {
			st.Jitter = CalculateJitter(transit, st.lastTransit, st.Jitter)
		}
		st.lastTransit = transit
	}

	rs.lastActive = time.Now()
}

// RecordReport folds an inbound SR/RR into the statistics table and
// forwards it to the OnReport callback.
func (rs *RTCPSession) RecordReport(sr *SenderReport, rr *ReceiverReport) {
	rs.mu.Lock()
	if sr != nil {
		st := rs.statFor(sr.SSRC)
		st.LastSRNTP = sr.NTPTimestamp
		st.LastSRReceiptTime = time.Now()
	}
	rs.lastActive = time.Now()
	rs.mu.Unlock()

	if rs.callbacks.OnReport != nil {
		rs.callbacks.OnReport(rs.streamIndex, sr, rr)
	}
}

func (rs *RTCPSession) statFor(ssrc uint32) *RTCPStatistics {
	st, ok := rs.stats[ssrc]
	if !ok {
		st = &RTCPStatistics{SSRC: ssrc}
		rs.stats[ssrc] = st
	}
	return st
}

func (rs *RTCPSession) emitReport() {
	if rs.callbacks.OnSendReport == nil {
		return
	}

	rs.mu.Lock()
	local := rs.statFor(rs.localSSRC)
	var receptionReports []ReceptionReport
	for ssrc, st := range rs.stats {
		if ssrc == rs.localSSRC {
			continue
		}
		expected := st.ExpectedMax - st.LastSeq + st.PacketsReceived
		receptionReports = append(receptionReports, ReceptionReport{
			SSRC:           ssrc,
			FractionLost:   CalculateFractionLost(expected, st.PacketsReceived),
			CumulativeLost: expected - st.PacketsReceived,
			HighestSeqNum:  st.LastSeq,
			Jitter:         uint32(st.Jitter),
			LastSR:         uint32(st.LastSRNTP >> 16),
		})
	}
	active := atomic.LoadInt32(&rs.localActive) == 1
	packetsSent, octetsSent := local.PacketsSent, local.OctetsSent
	rs.mu.Unlock()

	var report []byte
	if active {
		sr := &SenderReport{
			SSRC:             rs.localSSRC,
			NTPTimestamp:     NTPTimestamp(time.Now()),
			PacketCount:      packetsSent,
			OctetCount:       octetsSent,
			ReceptionReports: receptionReports,
		}
		b, err := sr.Marshal()
		if err != nil {
			return
		}
		report = b
	} else {
		rr := &ReceiverReport{SSRC: rs.localSSRC, ReceptionReports: receptionReports}
		b, err := rr.Marshal()
		if err != nil {
			return
		}
		report = b
	}

	if rs.cname != "" {
		sdes := &SourceDescription{Chunks: []SDESChunk{{
			Source: rs.localSSRC,
			Items:  []SDESItem{{Type: SDESTypeCNAME, Text: rs.cname}},
		}}}
		if b, err := sdes.Marshal(); err == nil {
			report = append(report, b...)
		}
	}

	rs.callbacks.OnSendReport(rs.streamIndex, report)
}

// Bye builds a standalone BYE packet for teardown. Per §4.8 this is emitted
// even when the secure context isn't ready; the caller silently drops send
// failures during teardown.
func (rs *RTCPSession) Bye(reason string) ([]byte, error) {
	b := &Bye{Sources: []uint32{rs.localSSRC}, Reason: reason}
	return b.Marshal()
}
