package codecs

import "encoding/binary"

// H.265 RTP payload NAL types (RFC 7798 §4.4).
const (
	h265NALTypeAP uint8 = 48
	h265NALTypeFU uint8 = 49
)

// H265Packetizer fragments or aggregates H.265 NAL units per RFC 7798: NALs
// that fit singly are sent as-is; runs of two or more small NALs may be
// aggregated into an AP packet; oversized NALs are fragmented with FU
// (§4.7).
type H265Packetizer struct {
	MaxPayloadSize int
}

// NewH265Packetizer constructs a packetizer using MaxPayloadSize.
func NewH265Packetizer() *H265Packetizer {
	return &H265Packetizer{MaxPayloadSize: MaxPayloadSize}
}

func (p *H265Packetizer) maxSize() int {
	if p.MaxPayloadSize > 0 {
		return p.MaxPayloadSize
	}
	return MaxPayloadSize
}

// PacketizeAccessUnit fragments/aggregates every NAL in an Annex-B access
// unit, setting the marker bit on the last RTP payload of the last NAL.
func (p *H265Packetizer) PacketizeAccessUnit(accessUnit []byte, ts uint32) []Sample {
	nalus := SplitAnnexB(accessUnit)
	maxSize := p.maxSize()

	var out []Sample
	i := 0
	for i < len(nalus) {
		nalu := nalus[i]
		last := i == len(nalus)-1

		if len(nalu) > maxSize {
			out = append(out, p.fragment(nalu, ts, last)...)
			i++
			continue
		}

		// Try to aggregate a run of small NALs into one AP packet.
		run := [][]byte{nalu}
		j := i + 1
		for j < len(nalus) && len(nalus[j]) <= maxSize && aggregatedSize(run)+2+len(nalus[j]) <= maxSize {
			run = append(run, nalus[j])
			j++
		}

		if len(run) >= 2 {
			lastOfRun := j == len(nalus)
			out = append(out, p.aggregate(run, ts, lastOfRun))
			i = j
			continue
		}

		out = append(out, Sample{Payload: append([]byte(nil), nalu...), Marker: last, Timestamp: ts})
		i++
	}
	return out
}

func aggregatedSize(run [][]byte) int {
	size := 2 // AP NAL header
	for _, n := range run {
		size += 2 + len(n)
	}
	return size
}

func (p *H265Packetizer) aggregate(run [][]byte, ts uint32, marker bool) Sample {
	payload := make([]byte, 2)
	// AP NAL header: F=0, Type=48 (6 bits), LayerId=0, TID=1.
	payload[0] = h265NALTypeAP << 1
	payload[1] = 0x01
	for _, nalu := range run {
		size := make([]byte, 2)
		binary.BigEndian.PutUint16(size, uint16(len(nalu)))
		payload = append(payload, size...)
		payload = append(payload, nalu...)
	}
	return Sample{Payload: payload, Marker: marker, Timestamp: ts}
}

func (p *H265Packetizer) fragment(nalu []byte, ts uint32, lastNALUOfAU bool) []Sample {
	if len(nalu) < 2 {
		return nil
	}
	maxSize := p.maxSize()

	naluHeader0 := nalu[0]
	naluType := (naluHeader0 >> 1) & 0x3F
	layerIDAndTID0 := nalu[0] & 0x01
	layerIDAndTID1 := nalu[1]

	fuFragCap := maxSize - 3
	if fuFragCap < 1 {
		fuFragCap = 1
	}

	var out []Sample
	payload := nalu[2:]
	for off := 0; off < len(payload); off += fuFragCap {
		end := off + fuFragCap
		last := false
		if end >= len(payload) {
			end = len(payload)
			last = true
		}

		fuHeader := naluType
		if off == 0 {
			fuHeader |= 0x80
		}
		if last {
			fuHeader |= 0x40
		}

		out = append(out, Sample{
			Payload: append([]byte{
				(h265NALTypeAP+1)<<1 | layerIDAndTID0, // PayloadHdr byte 0: F=0, Type=FU(49)
				layerIDAndTID1,
				fuHeader,
			}, payload[off:end]...),
			Marker:    last && lastNALUOfAU,
			Timestamp: ts,
		})
	}
	return out
}

// H265Depacketizer reassembles single-NAL, AP and FU RTP payloads back
// into NAL units.
type H265Depacketizer struct {
	fragment []byte
}

// Push feeds one RTP payload in and returns the first complete NAL it
// produced, if any. When an AP packet unpacks into several NALs, only the
// first is returned and the others are discarded; PushAll returns all of
// them.
func (d *H265Depacketizer) Push(payload []byte, marker bool) ([]byte, error) {
	nalus, _ := d.PushAll(payload, marker)
	if len(nalus) == 0 {
		return nil, nil
	}
	return nalus[0], nil
}

// PushAll feeds one RTP payload in and returns every complete NAL unit it
// produced (zero, one, or — for an AP packet — several).
func (d *H265Depacketizer) PushAll(payload []byte, marker bool) ([][]byte, error) {
	if len(payload) < 2 {
		return nil, nil
	}
	naluType := (payload[0] >> 1) & 0x3F

	switch naluType {
	case h265NALTypeAP:
		return d.unpackAP(payload[2:]), nil
	case h265NALTypeFU:
		return d.unpackFU(payload)
	default:
		d.fragment = nil
		return [][]byte{append([]byte(nil), payload...)}, nil
	}
}

func (d *H265Depacketizer) unpackAP(buf []byte) [][]byte {
	var nalus [][]byte
	for len(buf) >= 2 {
		size := binary.BigEndian.Uint16(buf[0:2])
		buf = buf[2:]
		if int(size) > len(buf) {
			return nalus
		}
		nalus = append(nalus, append([]byte(nil), buf[:size]...))
		buf = buf[size:]
	}
	return nalus
}

func (d *H265Depacketizer) unpackFU(payload []byte) ([][]byte, error) {
	if len(payload) < 3 {
		return nil, nil
	}
	layerIDAndTID1 := payload[1]
	fuHeader := payload[2]
	start := fuHeader&0x80 != 0
	end := fuHeader&0x40 != 0
	originalType := fuHeader & 0x3F

	if start {
		naluHeader0 := (originalType<<1)&0x7E | payload[0]&0x01
		d.fragment = append([]byte{naluHeader0, layerIDAndTID1}, payload[3:]...)
	} else {
		if d.fragment == nil {
			return nil, nil
		}
		d.fragment = append(d.fragment, payload[3:]...)
	}

	if end {
		out := d.fragment
		d.fragment = nil
		return [][]byte{out}, nil
	}
	return nil, nil
}
