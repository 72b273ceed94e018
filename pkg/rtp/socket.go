package rtp

// DSCP class selectors relevant to real-time media, per RFC 4594's
// recommended marking for voice/video (§5 expansion).
const (
	DSCPExpeditedForwarding = 46 // EF, voice
	DSCPAssuredForwarding41 = 34 // AF41, interactive video
)

// SetDSCP applies a DSCP/QoS marking to the channel's bound socket. On
// darwin and windows a rejected sockopt is swallowed; on Linux a rejected
// IP_TOS setting is returned as an error (a rejected IPv6 traffic class is
// ignored); on other platforms it does nothing.
func (c *Channel) SetDSCP(dscp int) error {
	return setSockOptDSCP(c.conn, dscp)
}
