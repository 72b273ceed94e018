package rtp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRTCPSessionRecordSendUpdatesLocalStats(t *testing.T) {
	rs := NewRTCPSession(0, 0xAAAA, "local@host", RTCPSessionCallbacks{})
	rs.RecordSend(1, 160)
	rs.RecordSend(2, 160)

	st := rs.statFor(rs.localSSRC)
	assert.Equal(t, uint32(2), st.PacketsSent)
	assert.Equal(t, uint32(320), st.OctetsSent)
}

func TestRTCPSessionRecordReceiveTracksExpectedMaxAndJitter(t *testing.T) {
	rs := NewRTCPSession(0, 0xAAAA, "", RTCPSessionCallbacks{})
	now := time.Now()
	rs.RecordReceive(0xBBBB, 10, 8000, now, 8000)
	rs.RecordReceive(0xBBBB, 11, 8160, now.Add(20*time.Millisecond), 8000)

	st := rs.statFor(0xBBBB)
	assert.Equal(t, uint32(2), st.PacketsReceived)
	assert.Equal(t, uint32(11), st.ExpectedMax)
	assert.Equal(t, uint32(11), st.LastSeq)
}

func TestRTCPSessionRecordReportInvokesCallback(t *testing.T) {
	var mu sync.Mutex
	var gotSR *SenderReport
	rs := NewRTCPSession(3, 0xAAAA, "", RTCPSessionCallbacks{
		OnReport: func(streamIndex int, sr *SenderReport, rr *ReceiverReport) {
			mu.Lock()
			defer mu.Unlock()
			gotSR = sr
		},
	})
	sr := &SenderReport{SSRC: 0xBBBB, NTPTimestamp: 123}
	rs.RecordReport(sr, nil)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, gotSR)
	assert.Equal(t, uint32(0xBBBB), gotSR.SSRC)

	st := rs.statFor(0xBBBB)
	assert.Equal(t, uint64(123), st.LastSRNTP)
}

func TestRTCPSessionEmitsSenderReportWhenLocalActive(t *testing.T) {
	reports := make(chan []byte, 1)
	rs := &RTCPSession{
		streamIndex: 0,
		localSSRC:   0xAAAA,
		stats:       make(map[uint32]*RTCPStatistics),
		callbacks: RTCPSessionCallbacks{
			OnSendReport: func(streamIndex int, report []byte) { reports <- report },
		},
	}
	rs.RecordSend(1, 160)
	rs.emitReport()

	select {
	case report := <-reports:
		assert.NotEmpty(t, report)
	default:
		t.Fatal("expected OnSendReport to be invoked")
	}
}

func TestRTCPSessionEmitsReceiverReportWhenLocalInactive(t *testing.T) {
	reports := make(chan []byte, 1)
	rs := &RTCPSession{
		streamIndex: 0,
		localSSRC:   0xAAAA,
		stats:       make(map[uint32]*RTCPStatistics),
		callbacks: RTCPSessionCallbacks{
			OnSendReport: func(streamIndex int, report []byte) { reports <- report },
		},
	}
	rs.emitReport()

	select {
	case report := <-reports:
		assert.NotEmpty(t, report)
	default:
		t.Fatal("expected OnSendReport to be invoked")
	}
}

func TestRTCPSessionCheckTimeoutFiresOnSilence(t *testing.T) {
	var firedIndex int
	fired := make(chan struct{}, 1)
	rs := &RTCPSession{
		streamIndex: 7,
		stats:       make(map[uint32]*RTCPStatistics),
		lastActive:  time.Now().Add(-2 * NoRTPTimeout),
		callbacks: RTCPSessionCallbacks{
			OnTimeout: func(streamIndex int) {
				firedIndex = streamIndex
				fired <- struct{}{}
			},
		},
	}
	rs.checkTimeout()

	select {
	case <-fired:
		assert.Equal(t, 7, firedIndex)
	default:
		t.Fatal("expected OnTimeout to fire")
	}
}

func TestRTCPSessionCheckTimeoutInvokesObserverAlongsideCallback(t *testing.T) {
	var callbackFired, observerFired int
	rs := &RTCPSession{
		streamIndex: 7,
		stats:       make(map[uint32]*RTCPStatistics),
		lastActive:  time.Now().Add(-2 * NoRTPTimeout),
		callbacks: RTCPSessionCallbacks{
			OnTimeout: func(streamIndex int) { callbackFired = streamIndex },
		},
	}
	rs.SetTimeoutObserver(func(streamIndex int) { observerFired = streamIndex })
	rs.checkTimeout()

	assert.Equal(t, 7, callbackFired)
	assert.Equal(t, 7, observerFired)
}

func TestRTCPSessionCheckTimeoutObserverSilentBeforeTimeout(t *testing.T) {
	observerFired := false
	rs := &RTCPSession{
		streamIndex: 1,
		stats:       make(map[uint32]*RTCPStatistics),
		lastActive:  time.Now(),
	}
	rs.SetTimeoutObserver(func(streamIndex int) { observerFired = true })
	rs.checkTimeout()

	assert.False(t, observerFired)
}

func TestRTCPSessionByeBuildsStandaloneBye(t *testing.T) {
	rs := NewRTCPSession(0, 0xCCCC, "", RTCPSessionCallbacks{})
	buf, err := rs.Bye("session ended")
	require.NoError(t, err)
	assert.NotEmpty(t, buf)
}

func TestRTCPSessionStartCloseIsClean(t *testing.T) {
	rs := NewRTCPSession(0, 0xAAAA, "", RTCPSessionCallbacks{})
	rs.period = time.Hour
	rs.Start()
	rs.Close()
}
