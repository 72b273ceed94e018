//go:build linux

package rtp

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// setSockOptDSCP marks outbound packets with the given DSCP class, for both
// the IPv4 TOS byte and the IPv6 traffic class, so upstream routers can
// prioritise RTP ahead of bulk traffic.
func setSockOptDSCP(conn *net.UDPConn, dscp int) error {
	tos := dscp << 2

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = rawConn.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), syscall.IPPROTO_IP, syscall.IP_TOS, tos); e != nil {
			sockErr = e
			return
		}
		// IPv6 dual-stack sockets also accept IPV6_TCLASS; ignore if unsupported.
		_ = unix.SetsockoptInt(int(fd), syscall.IPPROTO_IPV6, unix.IPV6_TCLASS, tos)
	})
	if err != nil {
		return err
	}
	return sockErr
}
