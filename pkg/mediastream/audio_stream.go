package mediastream

import (
	"github.com/arzzra/rtpmedia/pkg/rtp"
)

// AudioStream is a MediaStream specialised for audio: received packets are
// emitted as raw RTP with no depacketisation step (§4.4 step 7).
type AudioStream struct {
	*MediaStream
	dtmf *DTMFSender
}

// NewAudioStream wraps base as an audio stream and wires up a DTMF sender
// bound to the same send path.
func NewAudioStream(base *MediaStream) *AudioStream {
	a := &AudioStream{MediaStream: base}
	a.dtmf = NewDTMFSender(base)
	base.SetProcessor(a)
	return a
}

// ProcessPacket is a no-op for audio: the base pipeline delivers the raw
// packet via the EventRtpPacketReceived notification after this returns.
func (a *AudioStream) ProcessPacket(pkt *rtp.Packet) {}

// SendDTMF transmits one DTMF digit per §3/§8 scenario 2's packet plan.
func (a *AudioStream) SendDTMF(digit uint8, totalDurationUnits uint16) error {
	return a.dtmf.Send(digit, totalDurationUnits)
}
