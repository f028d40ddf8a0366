//go:build unix

// Package reactor implements the single-threaded, readiness-based event
// loop at the center of the server: it owns the listeners, the poll
// registry, the client session table, and the fd→owning-session map for
// CGI pipes, and drives everything else (the parser, the router, the
// static and CGI handlers) from one goroutine. No worker pool, no
// goroutine per connection: everything here runs on the one loop
// goroutine Run is called from.
package reactor

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"webservd/internal/config"
	"webservd/internal/poller"
	"webservd/internal/router"
	"webservd/internal/session"
)

// idleTimeout is the default session inactivity threshold.
const idleTimeout = 30 * time.Second

// tickTimeout bounds each poll wait so the idle sweep runs on a regular
// cadence regardless of traffic.
const tickTimeout = 2 * time.Second

// Reactor drives the whole server core from a single goroutine.
type Reactor struct {
	logger *log.Logger
	router *router.Router

	poll      poller.Poller
	listeners map[int]*listener
	sessions  map[int]*session.Session
	cgiPipes  map[int]*session.Session

	running atomic.Bool
}

// New returns a Reactor ready to have listeners attached via Listen.
// serverName is written into every response's Server header.
func New(serverName string, logger *log.Logger) *Reactor {
	r := &Reactor{
		logger:    logger,
		router:    &router.Router{ServerName: serverName},
		listeners: make(map[int]*listener),
		sessions:  make(map[int]*session.Session),
		cgiPipes:  make(map[int]*session.Session),
	}
	r.running.Store(true)
	return r
}

// Listen binds and registers one listening socket per distinct port in
// tree, grouping it with the servers that share that port, which become
// the virtual-host candidates for every connection accepted on it.
func (r *Reactor) Listen(tree *config.Tree) error {
	p, err := poller.New()
	if err != nil {
		return fmt.Errorf("reactor: create poller: %w", err)
	}
	r.poll = p

	for port, servers := range tree.ByPort() {
		host := ""
		for _, s := range servers {
			if s.Host != "" {
				host = s.Host
				break
			}
		}
		fd, err := bindListener(host, port)
		if err != nil {
			return fmt.Errorf("reactor: listen on port %d: %w", port, err)
		}
		if err := r.poll.Add(fd, false); err != nil {
			unix.Close(fd)
			return fmt.Errorf("reactor: register listener on port %d: %w", port, err)
		}
		r.listeners[fd] = &listener{fd: fd, port: port, servers: servers}
	}
	return nil
}

// Stop clears the process-wide running flag; Run exits once the current
// tick completes. Safe to call from a signal handler goroutine; the
// flag is the one piece of state shared with signal context.
func (r *Reactor) Stop() {
	r.running.Store(false)
}

// Run drives the event loop until Stop is called or a fatal poller
// error occurs.
func (r *Reactor) Run() error {
	for r.running.Load() {
		events, err := r.poll.Wait(tickTimeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("reactor: poll wait: %w", err)
		}

		ready := make(map[int]poller.Event, len(events))
		for _, e := range events {
			ready[e.Fd] = e
		}

		r.acceptAll(ready)
		r.serviceCGIPipes(ready)
		r.serviceSessions(ready)
		r.sweepClosed()
	}
	return r.close()
}

// acceptAll drains every listener whose fd was reported readable this
// tick, accepting in a loop until the accept call reports it would
// block. Accepts are fully drained before any per-client I/O runs.
func (r *Reactor) acceptAll(ready map[int]poller.Event) {
	for fd, l := range r.listeners {
		if ev, ok := ready[fd]; !ok || !ev.Readable {
			continue
		}
		r.acceptLoop(l)
	}
}

func (r *Reactor) acceptLoop(l *listener) {
	for {
		nfd, sa, err := unix.Accept(l.fd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			r.logf("accept on port %d: %v", l.port, err)
			return
		}
		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			continue
		}

		sess := session.New(nfd, formatSockaddr(sa), l.servers, l.port)
		if err := r.poll.Add(nfd, false); err != nil {
			sess.Destroy()
			continue
		}
		r.sessions[nfd] = sess
	}
}

// serviceCGIPipes handles readable events on every session's CGI output
// pipe, deregistering and closing the pipe once its child's output is
// fully read.
func (r *Reactor) serviceCGIPipes(ready map[int]poller.Event) {
	for fd, sess := range r.cgiPipes {
		ev, ok := ready[fd]
		if !ok || !ev.Readable {
			continue
		}
		if sess.HandleCGIReadable(r.router, r.router.ServerName) {
			r.poll.Remove(fd)
			delete(r.cgiPipes, fd)
			if err := sess.ClosePipe(); err != nil {
				r.logf("close cgi pipe: %v", err)
			}
			if !sess.Closed() {
				r.poll.Modify(sess.Fd, sess.HasPendingWrite())
			}
		}
	}
}

// registerNewCGIPipes picks up sessions that started a CGI child during
// this tick's read processing and registers their pipe fd for read
// events, recording the fd→session ownership in the cgi-pipe map.
func (r *Reactor) registerNewCGIPipes() {
	for _, sess := range r.sessions {
		if !sess.CGIRunning() {
			continue
		}
		fd := sess.CGIPipeFD()
		if _, already := r.cgiPipes[fd]; already {
			continue
		}
		if err := r.poll.Add(fd, false); err != nil {
			r.logf("register cgi pipe: %v", err)
			continue
		}
		r.cgiPipes[fd] = sess
	}
}

// serviceSessions is the per-client-fd half of one tick: idle-timeout
// sweeping runs over every session regardless of readiness (the sweep
// has to observe connections that never become ready again); read/write
// handling only runs for fds this tick's Wait actually reported.
func (r *Reactor) serviceSessions(ready map[int]poller.Event) {
	now := time.Now()
	for fd, sess := range r.sessions {
		if sess.Closed() {
			continue
		}
		if sess.IdleEligible() && now.Sub(sess.LastActivity()) > idleTimeout {
			sess.MarkClosed()
			continue
		}

		ev, hasEvent := ready[fd]
		if !hasEvent {
			continue
		}
		if ev.Error || ev.Hangup {
			sess.MarkClosed()
			continue
		}

		// Readable before writable: a response that just became ready
		// to write (or a close decision) must never be acted on using
		// this tick's stale writable bit.
		if ev.Readable {
			if sess.HandleReadable(r.router, r.router.ServerName) {
				sess.MarkClosed()
			}
		}
		if !sess.Closed() && ev.Writable {
			if sess.HandleWritable() {
				sess.MarkClosed()
			}
		}
		if !sess.Closed() {
			r.poll.Modify(fd, sess.HasPendingWrite())
		}
	}

	r.registerNewCGIPipes()
}

// sweepClosed tears down every session marked closed this tick. A
// session whose CGI child is still running only gives up its client fd
// here: the pipe stays registered so the child's output is read to EOF
// and the child reaped rather than left a zombie. serviceCGIPipes
// finishes such a session off once the pipe signals EOF.
func (r *Reactor) sweepClosed() {
	for fd, sess := range r.sessions {
		if !sess.Closed() {
			continue
		}
		r.poll.Remove(fd)
		delete(r.sessions, fd)
		if sess.CGIRunning() {
			sess.CloseClient()
			continue
		}
		sess.Destroy()
	}
}

func (r *Reactor) close() error {
	for fd, sess := range r.sessions {
		sess.Destroy()
		delete(r.sessions, fd)
	}
	for fd, sess := range r.cgiPipes {
		sess.Destroy()
		delete(r.cgiPipes, fd)
	}
	for fd := range r.listeners {
		unix.Close(fd)
	}
	return r.poll.Close()
}

func (r *Reactor) logf(format string, args ...interface{}) {
	if r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
