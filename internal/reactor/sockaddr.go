//go:build unix

package reactor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// formatSockaddr renders an accepted peer address as host:port for the
// session's RemoteAddr / logging use, tolerating address families this
// server doesn't itself listen on.
func formatSockaddr(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP(a.Addr[:])
		return fmt.Sprintf("%s:%d", ip.String(), a.Port)
	case *unix.SockaddrInet6:
		ip := net.IP(a.Addr[:])
		return fmt.Sprintf("[%s]:%d", ip.String(), a.Port)
	default:
		return "unknown"
	}
}
