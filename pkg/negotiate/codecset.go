// Package negotiate reads the negotiated codec set and header-extension
// assignment out of an SDP offer/answer. SDP negotiation itself is out of
// scope (§1: "consumed as negotiated codec set") — this package is the
// thin boundary that turns a parsed session description into the
// mediastream.Capability / rtp.ExtensionMap values the transport consumes.
package negotiate

import (
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"

	"github.com/arzzra/rtpmedia/pkg/mediastream"
	"github.com/arzzra/rtpmedia/pkg/rtp"
)

// MediaDescription is the subset of one SDP "m=" section this package
// extracts: the negotiated payload-type capabilities and header-extension
// assignment for one MediaStream.
type MediaDescription struct {
	Kind         mediastream.MediaKind
	Capabilities []mediastream.Capability
	Extensions   rtp.ExtensionMap
	Direction    mediastream.StreamStatus
}

// ParseOffer extracts one MediaDescription per "m=" line from an SDP
// session description.
func ParseOffer(raw []byte) ([]MediaDescription, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal(raw); err != nil {
		return nil, err
	}

	var out []MediaDescription
	for _, media := range desc.MediaDescriptions {
		kind, ok := mediaKind(media.MediaName.Media)
		if !ok {
			continue
		}

		md := MediaDescription{
			Kind:       kind,
			Extensions: make(rtp.ExtensionMap),
			Direction:  mediastream.StatusSendRecv,
		}

		rtpmaps := make(map[string]string) // payload type -> "name/clockrate"
		for _, attr := range media.Attributes {
			switch attr.Key {
			case "rtpmap":
				parts := strings.SplitN(attr.Value, " ", 2)
				if len(parts) == 2 {
					rtpmaps[parts[0]] = parts[1]
				}
			case "extmap":
				id, uri, ok := parseExtmap(attr.Value)
				if ok {
					md.Extensions[uri] = id
				}
			case "sendrecv":
				md.Direction = mediastream.StatusSendRecv
			case "sendonly":
				md.Direction = mediastream.StatusSendOnly
			case "recvonly":
				md.Direction = mediastream.StatusRecvOnly
			case "inactive":
				md.Direction = mediastream.StatusInactive
			}
		}

		for _, ptStr := range media.MediaName.Formats {
			pt, err := strconv.Atoi(ptStr)
			if err != nil {
				continue
			}
			cap := mediastream.Capability{PayloadType: uint8(pt)}
			if mapping, ok := rtpmaps[ptStr]; ok {
				nameRate := strings.SplitN(mapping, "/", 2)
				cap.FormatName = nameRate[0]
				if len(nameRate) == 2 {
					if rate, err := strconv.Atoi(nameRate[1]); err == nil {
						cap.ClockRate = uint32(rate)
					}
				}
			}
			md.Capabilities = append(md.Capabilities, cap)
		}

		out = append(out, md)
	}
	return out, nil
}

func mediaKind(sdpMedia string) (mediastream.MediaKind, bool) {
	switch sdpMedia {
	case "audio":
		return mediastream.MediaKindAudio, true
	case "video":
		return mediastream.MediaKindVideo, true
	case "text":
		return mediastream.MediaKindText, true
	default:
		return 0, false
	}
}

// parseExtmap parses an "extmap" attribute value of the form
// "<id>[/<direction>] <uri>" per RFC 5285 §7.
func parseExtmap(value string) (id uint8, uri string, ok bool) {
	fields := strings.Fields(value)
	if len(fields) < 2 {
		return 0, "", false
	}
	idField := strings.SplitN(fields[0], "/", 2)[0]
	n, err := strconv.Atoi(idField)
	if err != nil || n < 1 || n > 14 {
		return 0, "", false
	}
	return uint8(n), fields[1], true
}
