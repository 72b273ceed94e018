package mediastream

import (
	"time"

	"github.com/arzzra/rtpmedia/pkg/codecs"
	"github.com/arzzra/rtpmedia/pkg/rtp"
)

// TextStream is a MediaStream specialised for T.140 real-time text:
// received packets are emitted raw (RFC 4103 carries no reassembly
// framing); sent text is fragmented across the MTU (§4.4 step 7, §4.7).
type TextStream struct {
	*MediaStream

	depacketizer codecs.T140Depacketizer
	packetizer   *codecs.T140Packetizer
	lastTimestamp uint32
}

// NewTextStream wraps base as a text stream.
func NewTextStream(base *MediaStream) *TextStream {
	t := &TextStream{MediaStream: base, packetizer: codecs.NewT140Packetizer()}
	base.SetProcessor(t)
	return t
}

// ProcessPacket is a no-op: RFC 4103 carries no reassembly framing, so the
// raw packet delivered via EventRtpPacketReceived in the base pipeline is
// already the complete text fragment.
func (t *TextStream) ProcessPacket(pkt *rtp.Packet) {}

// SendText fragments and transmits text, advancing the RTP timestamp by
// elapsed wall-clock time since the previous send (§4.7).
func (t *TextStream) SendText(payloadType uint8, text []byte, now time.Time) error {
	samples := t.packetizer.Packetize(text, now, t.lastTimestamp)
	for _, s := range samples {
		if err := t.SendRtpRaw(payloadType, s.Payload, s.Timestamp, s.Marker, nil); err != nil {
			return err
		}
		t.lastTimestamp = s.Timestamp
	}
	return nil
}
