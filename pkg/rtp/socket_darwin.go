//go:build darwin

package rtp

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// setSockOptDSCP marks outbound packets with the given DSCP class. macOS may
// require elevated privileges for some TOS values; a rejection is swallowed
// rather than surfaced, matching the teacher's darwin transport file.
func setSockOptDSCP(conn *net.UDPConn, dscp int) error {
	tos := dscp << 2

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	_ = rawConn.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), syscall.IPPROTO_IP, syscall.IP_TOS, tos); e != nil {
			return
		}
		_ = unix.SetsockoptInt(int(fd), syscall.IPPROTO_IPV6, unix.IPV6_TCLASS, tos)
	})
	return nil
}
