//go:build darwin

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueuePoller implements Poller over BSD/Darwin's kqueue(2).
type kqueuePoller struct {
	kq int
	// writable tracks which fds currently have an EVFILT_WRITE filter
	// registered, since kqueue's read and write interest are two
	// independent filter registrations rather than one event mask.
	writable map[int]bool
}

// New returns the platform's Poller implementation.
func New() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueuePoller{kq: kq, writable: make(map[int]bool)}, nil
}

func (p *kqueuePoller) changes(fd int, writable bool) []unix.Kevent_t {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD},
	}
	if writable {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD})
	} else if p.writable[fd] {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE})
	}
	return changes
}

func (p *kqueuePoller) Add(fd int, writable bool) error {
	changes := p.changes(fd, writable)
	if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
		return err
	}
	p.writable[fd] = writable
	return nil
}

func (p *kqueuePoller) Modify(fd int, writable bool) error {
	changes := p.changes(fd, writable)
	if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
		return err
	}
	p.writable[fd] = writable
	return nil
}

func (p *kqueuePoller) Remove(fd int) error {
	delete(p.writable, fd)
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	// Deleting a filter that was never added returns ENOENT per event;
	// kqueue still applies the other changes, so the error is ignored.
	unix.Kevent(p.kq, changes, nil, nil)
	return nil
}

func (p *kqueuePoller) Wait(timeout time.Duration) ([]Event, error) {
	var ts *unix.Timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	raw := make([]unix.Kevent_t, 256)
	for {
		n, err := unix.Kevent(p.kq, nil, raw, ts)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		byFd := make(map[int]*Event, n)
		order := make([]int, 0, n)
		for i := 0; i < n; i++ {
			e := raw[i]
			fd := int(e.Ident)
			ev, ok := byFd[fd]
			if !ok {
				ev = &Event{Fd: fd}
				byFd[fd] = ev
				order = append(order, fd)
			}
			switch e.Filter {
			case unix.EVFILT_READ:
				ev.Readable = true
			case unix.EVFILT_WRITE:
				ev.Writable = true
			}
			if e.Flags&unix.EV_EOF != 0 {
				ev.Hangup = true
			}
			if e.Flags&unix.EV_ERROR != 0 {
				ev.Error = true
			}
		}
		out := make([]Event, 0, len(order))
		for _, fd := range order {
			out = append(out, *byFd[fd])
		}
		return out, nil
	}
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kq)
}
