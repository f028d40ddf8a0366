//go:build linux

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller implements Poller over Linux's epoll(7). Unlike the
// kqueue implementation, no per-fd bookkeeping is needed: EPOLL_CTL_MOD
// replaces the whole event mask in one call.
type epollPoller struct {
	epfd int
}

// New returns the platform's Poller implementation.
func New() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: epfd}, nil
}

func eventMask(writable bool) uint32 {
	mask := uint32(unix.EPOLLIN)
	if writable {
		mask |= unix.EPOLLOUT
	}
	return mask
}

func (p *epollPoller) Add(fd int, writable bool) error {
	ev := unix.EpollEvent{Events: eventMask(writable), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Modify(fd int, writable bool) error {
	ev := unix.EpollEvent{Events: eventMask(writable), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(timeout time.Duration) ([]Event, error) {
	ms := -1
	if timeout > 0 {
		ms = int(timeout / time.Millisecond)
	}

	raw := make([]unix.EpollEvent, 256)
	for {
		n, err := unix.EpollWait(p.epfd, raw, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		out := make([]Event, 0, n)
		for i := 0; i < n; i++ {
			e := raw[i]
			out = append(out, Event{
				Fd:       int(e.Fd),
				Readable: e.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
				Writable: e.Events&unix.EPOLLOUT != 0,
				Error:    e.Events&unix.EPOLLERR != 0,
				Hangup:   e.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
			})
		}
		return out, nil
	}
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
