//go:build windows

package rtp

import (
	"net"
	"syscall"

	"golang.org/x/sys/windows"
)

// setSockOptDSCP marks outbound packets with the given DSCP class. Windows
// often requires administrative privileges for IP_TOS; a rejection is
// swallowed, matching the teacher's windows transport file.
func setSockOptDSCP(conn *net.UDPConn, dscp int) error {
	tos := dscp << 2

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	_ = rawConn.Control(func(fd uintptr) {
		handle := syscall.Handle(fd)
		if e := syscall.SetsockoptInt(handle, syscall.IPPROTO_IP, syscall.IP_TOS, tos); e != nil {
			return
		}
		_ = windows.SetsockoptInt(windows.Handle(fd), windows.IPPROTO_IPV6, windows.IPV6_TCLASS, tos)
	})
	return nil
}
