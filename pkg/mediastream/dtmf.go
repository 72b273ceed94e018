package mediastream

import (
	"context"
	"time"

	"github.com/arzzra/rtpmedia/pkg/rtp"
)

// DTMFSender emits RFC 2833 telephone-event packets for one audio stream's
// send path, spaced at EventSamplePeriod and honouring cancellation at the
// next packet boundary (§5: "DTMF send honours a cancellation token,
// stopping at the next packet boundary and leaving the event incomplete").
type DTMFSender struct {
	stream *MediaStream
	period time.Duration
}

// NewDTMFSender constructs a sender using the default sample period.
func NewDTMFSender(stream *MediaStream) *DTMFSender {
	return &DTMFSender{stream: stream, period: RTPEventDefaultSamplePeriod}
}

// Send transmits digit for totalDurationUnits (in RTP timestamp units at
// the track's clock rate), following the start/progressive/end packet plan
// of rtp.EventPacketPlan (§3, §8 scenario 2).
func (d *DTMFSender) Send(digit uint8, totalDurationUnits uint16) error {
	return d.SendContext(context.Background(), digit, totalDurationUnits)
}

// SendContext is Send with cancellation: ctx is checked between packets,
// never mid-packet, and cancellation leaves the event incomplete with no
// forced end-of-event marker (§5).
func (d *DTMFSender) SendContext(ctx context.Context, digit uint8, totalDurationUnits uint16) error {
	plan := rtp.EventPacketPlan{
		EventID:       digit,
		Volume:        10,
		TotalDuration: totalDurationUnits,
		StepDuration:  uint16(uint32(DefaultAudioClockRate) * uint32(d.period/time.Millisecond) / 1000),
	}

	local := d.stream.LocalTrack()
	if local == nil {
		return rtp.NewConfigError(int(d.stream.Index), "no local track for dtmf send", nil)
	}

	pt := d.stream.Config.dtmfPayloadType()
	ts := local.Timestamp

	for i, ev := range plan.Events() {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(d.period):
			}
		}
		if err := d.stream.SendRtpRaw(pt, ev.Marshal(), ts, i == 0, nil); err != nil {
			return err
		}
	}
	return nil
}
