package codecs

// H.264 NAL unit types relevant to RTP framing (RFC 6184 §5.2).
const (
	h264NALTypeFUA uint8 = 28
)

// SplitAnnexB scans buf for Annex-B start codes (00 00 01 or 00 00 00 01)
// and returns the NAL units between them, stripped of the start codes and
// any trailing zero padding (§4.7).
func SplitAnnexB(buf []byte) [][]byte {
	var nalus [][]byte
	starts := findStartCodes(buf)
	if len(starts) == 0 {
		return nil
	}
	for i, start := range starts {
		end := len(buf)
		if i+1 < len(starts) {
			end = starts[i+1].offset
		}
		nalu := buf[start.offset+start.length : end]
		for len(nalu) > 0 && nalu[len(nalu)-1] == 0 {
			nalu = nalu[:len(nalu)-1]
		}
		if len(nalu) > 0 {
			nalus = append(nalus, nalu)
		}
	}
	return nalus
}

type startCode struct {
	offset int
	length int // 3 or 4
}

func findStartCodes(buf []byte) []startCode {
	var codes []startCode
	for i := 0; i+2 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			if i > 0 && buf[i-1] == 0 {
				// 4-byte start code: caller sees it via the 00 00 01 suffix.
				codes = append(codes, startCode{offset: i - 1, length: 4})
				continue
			}
			codes = append(codes, startCode{offset: i, length: 3})
		}
	}
	return codes
}

// JoinAnnexB reassembles NAL units into an Annex-B access unit using
// 4-byte start codes, the canonical choice §8's H.264 round-trip property
// is defined "up to".
func JoinAnnexB(nalus [][]byte) []byte {
	var out []byte
	for _, nalu := range nalus {
		out = append(out, 0x00, 0x00, 0x00, 0x01)
		out = append(out, nalu...)
	}
	return out
}

// H264Packetizer fragments H.264 NAL units (already split from an Annex-B
// access unit) into RTP payloads per RFC 6184: a NAL that fits whole is
// sent as a single-NAL packet, otherwise as FU-A fragments. No STAP-A
// aggregation is performed (§4.7: "STAP-A framing not used here, a single
// NAL per RTP").
type H264Packetizer struct {
	MaxPayloadSize int
}

// NewH264Packetizer constructs a packetizer using MaxPayloadSize as the
// fragmentation threshold.
func NewH264Packetizer() *H264Packetizer {
	return &H264Packetizer{MaxPayloadSize: MaxPayloadSize}
}

// PacketizeAccessUnit fragments every NAL in an Annex-B access unit,
// setting the marker bit on the last RTP payload of the last NAL. Every
// returned sample carries ts unchanged; no frame duration is applied and
// ts is not advanced.
func (p *H264Packetizer) PacketizeAccessUnit(accessUnit []byte, ts uint32) []Sample {
	nalus := SplitAnnexB(accessUnit)
	var out []Sample
	for i, nalu := range nalus {
		last := i == len(nalus)-1
		samples := p.packetizeNALU(nalu, ts, last)
		out = append(out, samples...)
	}
	return out
}

func (p *H264Packetizer) maxSize() int {
	if p.MaxPayloadSize > 0 {
		return p.MaxPayloadSize
	}
	return MaxPayloadSize
}

func (p *H264Packetizer) packetizeNALU(nalu []byte, ts uint32, lastNALUOfAU bool) []Sample {
	if len(nalu) == 0 {
		return nil
	}
	maxSize := p.maxSize()

	if len(nalu) <= maxSize {
		return []Sample{{Payload: append([]byte(nil), nalu...), Marker: lastNALUOfAU, Timestamp: ts}}
	}

	nri := nalu[0] & 0x60
	naluType := nalu[0] & 0x1F
	indicator := nri | h264NALTypeFUA

	var out []Sample
	fragmentCap := maxSize - 2
	if fragmentCap < 1 {
		fragmentCap = 1
	}
	for i := 1; i < len(nalu); i += fragmentCap {
		end := i + fragmentCap
		last := false
		if end >= len(nalu) {
			end = len(nalu)
			last = true
		}
		header := naluType
		if i == 1 {
			header |= 0x80 // start
		}
		if last {
			header |= 0x40 // end
		}
		payload := make([]byte, 0, 2+(end-i))
		payload = append(payload, indicator, header)
		payload = append(payload, nalu[i:end]...)

		marker := last && lastNALUOfAU
		out = append(out, Sample{Payload: payload, Marker: marker, Timestamp: ts})
	}
	return out
}

// H264Depacketizer reassembles single-NAL and FU-A RTP payloads back into
// Annex-B NAL units. Malformed fragments reset only the in-progress NAL;
// they never corrupt a previously completed one (§4.7).
type H264Depacketizer struct {
	fragment []byte
}

// Push feeds one RTP payload into the depacketizer, returning a complete
// NAL unit (without start code) when one finishes.
func (d *H264Depacketizer) Push(payload []byte, marker bool) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	naluType := payload[0] & 0x1F

	if naluType != h264NALTypeFUA {
		d.fragment = nil
		return append([]byte(nil), payload...), nil
	}

	if len(payload) < 2 {
		d.fragment = nil
		return nil, nil
	}
	indicator := payload[0]
	header := payload[1]
	start := header&0x80 != 0
	end := header&0x40 != 0

	if start {
		nri := indicator & 0x60
		originalType := header & 0x1F
		d.fragment = append([]byte{nri | originalType}, payload[2:]...)
	} else {
		if d.fragment == nil {
			// Missing start fragment; wait for the next start.
			return nil, nil
		}
		d.fragment = append(d.fragment, payload[2:]...)
	}

	if end {
		out := d.fragment
		d.fragment = nil
		return out, nil
	}
	return nil, nil
}
