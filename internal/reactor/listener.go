//go:build unix

package reactor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"webservd/internal/config"
)

// listener is one non-blocking, owned listening socket and the servers
// that share its port. It holds no per-client state.
type listener struct {
	fd      int
	port    int
	servers []*config.Server
}

// bindListener creates, binds, and listens on host:port, returning a
// non-blocking fd with SO_REUSEADDR and (where available) SO_REUSEPORT
// set.
func bindListener(host string, port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	setReusePort(fd)

	addr, err := resolveAddr(host, port)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

const listenBacklog = 1024

// setReusePort sets SO_REUSEPORT where the platform exposes it. A
// failure here is non-fatal: SO_REUSEADDR alone is enough for a single
// reactor process to bind.
func setReusePort(fd int) {
	unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}

func resolveAddr(host string, port int) (unix.Sockaddr, error) {
	sa := &unix.SockaddrInet4{Port: port}
	if host == "" {
		return sa, nil
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil {
			return nil, err
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("reactor: host %q resolves to no addresses", host)
		}
		ip = ips[0]
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, unix.EAFNOSUPPORT
	}
	copy(sa.Addr[:], ip4)
	return sa, nil
}
