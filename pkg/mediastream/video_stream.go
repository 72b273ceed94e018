package mediastream

import (
	"github.com/arzzra/rtpmedia/pkg/codecs"
	"github.com/arzzra/rtpmedia/pkg/rtp"
)

// VideoCodec identifies which depacketiser a VideoStream drives. Per §9's
// resolved open question (c), the canonical video codec set is the union
// H.264/H.265/VP8/MJPEG.
type VideoCodec int

const (
	VideoCodecH264 VideoCodec = iota
	VideoCodecH265
	VideoCodecVP8
	VideoCodecMJPEG
)

// VideoStream is a MediaStream specialised for video: received packets are
// run through the payload-type-appropriate depacketiser and complete
// frames are surfaced via EventVideoFrameReceived (§4.4 step 7, §4.7).
type VideoStream struct {
	*MediaStream

	codec VideoCodec
	maxFrameSize int

	h264 *codecs.H264Depacketizer
	h265 *codecs.H265Depacketizer
	vp8  *codecs.VP8Depacketizer
	mjpeg *codecs.MJPEGDepacketizer

	h264Pack *codecs.H264Packetizer
	h265Pack *codecs.H265Packetizer
	vp8Pack  *codecs.VP8Packetizer
	mjpegPack *codecs.MJPEGPacketizer
}

// NewVideoStream wraps base as a video stream driving the given codec's
// packetiser/depacketiser pair.
func NewVideoStream(base *MediaStream, codec VideoCodec) *VideoStream {
	v := &VideoStream{MediaStream: base, codec: codec, maxFrameSize: base.Config.maxVideoFrameSize()}
	switch codec {
	case VideoCodecH264:
		v.h264 = &codecs.H264Depacketizer{}
		v.h264Pack = codecs.NewH264Packetizer()
	case VideoCodecH265:
		v.h265 = &codecs.H265Depacketizer{}
		v.h265Pack = codecs.NewH265Packetizer()
	case VideoCodecVP8:
		v.vp8 = &codecs.VP8Depacketizer{}
		v.vp8Pack = codecs.NewVP8Packetizer()
	case VideoCodecMJPEG:
		v.mjpeg = &codecs.MJPEGDepacketizer{}
		v.mjpegPack = codecs.NewMJPEGPacketizer()
	}
	base.SetProcessor(v)
	return v
}

// ProcessPacket feeds pkt's payload through the configured depacketiser,
// surfacing a complete frame via EventVideoFrameReceived when one finishes.
// Completed frames larger than maxFrameSize are discarded; a frame still
// being assembled is not checked against it (§6
// MaxReconstructedVideoFrameSize).
func (v *VideoStream) ProcessPacket(pkt *rtp.Packet) {
	var (
		frame []byte
		err   error
	)

	switch v.codec {
	case VideoCodecH264:
		frame, err = v.h264.Push(pkt.Payload, pkt.Header.Marker)
	case VideoCodecH265:
		frames, perr := v.h265.PushAll(pkt.Payload, pkt.Header.Marker)
		err = perr
		for _, f := range frames {
			v.emitFrame(f)
		}
		return
	case VideoCodecVP8:
		frame, err = v.vp8.Push(pkt.Payload, pkt.Header.Marker)
	case VideoCodecMJPEG:
		frame, err = v.mjpeg.Push(pkt.Payload, pkt.Header.Marker)
	}

	if err != nil {
		return
	}
	v.emitFrame(frame)
}

func (v *VideoStream) emitFrame(frame []byte) {
	if frame == nil {
		return
	}
	if len(frame) > v.maxFrameSize {
		return
	}
	v.fire(EventVideoFrameReceived, VideoFramePayload{Frame: frame})
}

// SendAccessUnit packetises an Annex-B access unit (H.264/H.265) or a
// single encoded frame (VP8/MJPEG) and sends each resulting RTP payload.
func (v *VideoStream) SendAccessUnit(payloadType uint8, sample []byte, ts uint32) error {
	var samples []codecs.Sample
	switch v.codec {
	case VideoCodecH264:
		samples = v.h264Pack.PacketizeAccessUnit(sample, ts)
	case VideoCodecH265:
		samples = v.h265Pack.PacketizeAccessUnit(sample, ts)
	case VideoCodecVP8:
		samples = v.vp8Pack.Packetize(sample, ts)
	case VideoCodecMJPEG:
		samples = v.mjpegPack.Packetize(sample, ts)
	}

	for _, s := range samples {
		if err := v.SendRtpRaw(payloadType, s.Payload, s.Timestamp, s.Marker, nil); err != nil {
			return err
		}
	}
	return nil
}
