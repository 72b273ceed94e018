//go:build !linux && !darwin && !windows

package rtp

import "net"

// setSockOptDSCP is a no-op on platforms without a teacher-grounded
// implementation; SetDSCP degrades to a harmless no-op there.
func setSockOptDSCP(conn *net.UDPConn, dscp int) error {
	return nil
}
