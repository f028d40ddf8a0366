//go:build unix

// Package session implements the per-connection client state: input
// buffer, resumable parser, output buffer and write cursor, last
// activity timestamp, and the embedded CGI handle. A Session owns its
// client fd and (while one is running) its CGI pipe fd, but never the
// reactor's poller or session table: the reactor mediates every
// registration change, and this package never calls back into it.
package session

import (
	"bytes"
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"webservd/internal/cgi"
	"webservd/internal/config"
	"webservd/internal/httpparse"
	"webservd/internal/respond"
	"webservd/internal/router"
)

// CGIState tracks the lifecycle of a session's CGI child.
type CGIState int

const (
	CGIIdle CGIState = iota
	CGIRunning
	CGIDone
)

const readChunkSize = 4096

// Session is one accepted client connection.
type Session struct {
	Fd         int
	RemoteAddr string

	// Servers is the candidate set of server configs sharing this
	// connection's listening port; Router.Route re-evaluates it per
	// request so Host-header-based virtual-host selection works across
	// keep-alive requests on the same connection.
	Servers    []*config.Server
	ServerPort int

	inBuf           []byte
	parser          *httpparse.Parser
	requestComplete bool

	outBuf           []byte
	writeCursor      int
	pendingKeepAlive bool

	lastActivity time.Time
	closed       bool

	cgiState    CGIState
	cgiProc     *cgi.Process
	cgiOutput   bytes.Buffer
	cgiServer   *config.Server
	cgiLocation *config.Location
	cgiRequest  *httpparse.Request
}

// New returns a Session for an accepted, already-nonblocking client fd.
func New(fd int, remoteAddr string, servers []*config.Server, port int) *Session {
	return &Session{
		Fd:           fd,
		RemoteAddr:   remoteAddr,
		Servers:      servers,
		ServerPort:   port,
		parser:       httpparse.NewParser(maxBodyHint(servers)),
		lastActivity: time.Now(),
	}
}

// maxBodyHint returns the largest client_max_body_size configured
// across every candidate server/location for this port, used as the
// parser's coarse fail-fast cap. The precise, location-specific limit
// can't be known until after the request is parsed and routed; the
// router enforces that one.
func maxBodyHint(servers []*config.Server) int64 {
	var max int64
	for _, s := range servers {
		if s.BodyMaxSize > max {
			max = s.BodyMaxSize
		}
		for _, l := range s.Locations {
			if l.BodyMaxSize > max {
				max = l.BodyMaxSize
			}
		}
	}
	return max
}

// Closed reports whether the reactor should sweep this session.
func (s *Session) Closed() bool { return s.closed }

// MarkClosed flags the session for the reactor's next sweep.
func (s *Session) MarkClosed() { s.closed = true }

// LastActivity is used by the reactor's idle sweep.
func (s *Session) LastActivity() time.Time { return s.lastActivity }

// IdleEligible reports whether this session may be closed for read
// inactivity right now. A session whose request is complete but whose
// response hasn't fully drained yet (be it writing or waiting on CGI)
// is never subject to the idle sweep.
func (s *Session) IdleEligible() bool {
	return !s.requestComplete
}

// HasPendingWrite reports whether the output buffer still has unwritten
// bytes, which the reactor uses to decide whether to watch this fd for
// writable events.
func (s *Session) HasPendingWrite() bool {
	return s.writeCursor < len(s.outBuf)
}

// CGIRunning reports whether this session currently owns a live CGI
// child whose output pipe the reactor must keep registered.
func (s *Session) CGIRunning() bool {
	return s.cgiState == CGIRunning
}

// CGIPipeFD returns the fd of the running CGI child's output pipe.
func (s *Session) CGIPipeFD() int {
	return int(s.cgiProc.Stdout.Fd())
}

// HandleReadable services one readable event: a single read into a
// fixed-size scratch buffer, appended to the input buffer, followed by
// a parse attempt. It returns true if the session should be closed.
func (s *Session) HandleReadable(rt *router.Router, serverName string) (shouldClose bool) {
	buf := make([]byte, readChunkSize)
	n, err := unix.Read(s.Fd, buf)
	if err != nil {
		if isWouldBlock(err) {
			return false
		}
		return true
	}
	if n == 0 {
		return true
	}

	s.inBuf = append(s.inBuf, buf[:n]...)
	s.lastActivity = time.Now()

	if s.requestComplete {
		// Strict in-order processing: the next request is never parsed
		// until the current response has fully drained.
		return false
	}
	if !s.parser.Parse(s.inBuf) {
		return false
	}
	s.requestComplete = true
	s.process(rt, serverName)
	return false
}

// process runs the router over the just-completed request. A
// synchronous response is immediately serialized; a CGI dispatch starts
// the child and leaves the session in CGIRunning state for the reactor
// to register the pipe fd.
func (s *Session) process(rt *router.Router, serverName string) {
	req := s.parser.Request()
	resp, dispatch := rt.Route(req, s.Servers, s.ServerPort)

	if dispatch == nil {
		s.enqueueResponse(resp, req, serverName)
		return
	}

	proc, err := cgi.Start(dispatch.Interpreter, dispatch.ScriptPath, dispatch.Env, dispatch.Body)
	if err != nil {
		code := 500
		if errors.Is(err, cgi.ErrInterpreterMissing) {
			code = 404
		}
		resp := rt.Finalize(respond.New(code), dispatch.Server, dispatch.Location)
		s.enqueueResponse(resp, req, serverName)
		return
	}

	s.cgiState = CGIRunning
	s.cgiProc = proc
	s.cgiServer = dispatch.Server
	s.cgiLocation = dispatch.Location
	s.cgiRequest = req
}

// HandleCGIReadable services one readable event on this session's CGI
// output pipe: a single read, appended to the accumulator, and on EOF
// the full completion path (reap, parse, enqueue). It returns true once
// the CGI pipe is done and must be deregistered by the reactor.
func (s *Session) HandleCGIReadable(rt *router.Router, serverName string) (done bool) {
	buf := make([]byte, readChunkSize)
	n, err := s.cgiProc.ReadChunk(buf)
	if n > 0 {
		s.cgiOutput.Write(buf[:n])
	}
	if err == nil {
		return false
	}
	if isWouldBlock(err) {
		return false
	}

	// Either EOF or a hard read error on the pipe: either way the child
	// is reaped and whatever output arrived is parsed (or, if empty or
	// unparseable, turned into a 500) rather than left hanging.
	s.finishCGI(rt, serverName)
	return true
}

// ClosePipe releases the CGI output pipe fd. The reactor calls this
// only after deregistering the fd from the poller.
func (s *Session) ClosePipe() error {
	if s.cgiProc == nil {
		return nil
	}
	return s.cgiProc.Close()
}

func (s *Session) finishCGI(rt *router.Router, serverName string) {
	_ = s.cgiProc.Reap()

	resp, err := cgi.ParseOutput(s.cgiOutput.Bytes())
	if err != nil {
		resp = respond.New(500)
	}
	resp = rt.Finalize(resp, s.cgiServer, s.cgiLocation)
	s.enqueueResponse(resp, s.cgiRequest, serverName)
	s.cgiState = CGIDone
}

func (s *Session) enqueueResponse(resp *respond.Response, req *httpparse.Request, serverName string) {
	keepAlive := req.KeepAlive && !req.Malformed
	s.outBuf = respond.Serialize(resp, keepAlive, serverName, time.Now())
	s.writeCursor = 0
	s.pendingKeepAlive = keepAlive
}

// HandleWritable drains as much of the output buffer as the socket will
// accept. It returns true if the session should be closed (a hard write
// error, or a fully-drained non-keep-alive response).
func (s *Session) HandleWritable() (shouldClose bool) {
	for s.writeCursor < len(s.outBuf) {
		n, err := unix.Write(s.Fd, s.outBuf[s.writeCursor:])
		if n > 0 {
			s.writeCursor += n
			s.lastActivity = time.Now()
		}
		if err != nil {
			if isWouldBlock(err) {
				return false
			}
			return true
		}
		if n == 0 {
			return true
		}
	}

	if !s.pendingKeepAlive {
		return true
	}
	s.resetForNextRequest()
	return false
}

// resetForNextRequest clears per-request state between keep-alive
// requests, preserving the connection's buffers' backing arrays and its
// candidate server list.
func (s *Session) resetForNextRequest() {
	s.inBuf = s.inBuf[:0]
	s.parser.Reset()
	s.requestComplete = false
	s.outBuf = nil
	s.writeCursor = 0
	s.pendingKeepAlive = false
	s.cgiState = CGIIdle
	s.cgiProc = nil
	s.cgiServer = nil
	s.cgiLocation = nil
	s.cgiRequest = nil
	s.cgiOutput.Reset()
}

// CloseClient releases just the client socket fd, leaving a running
// CGI child's pipe untouched. The reactor uses it when the client goes
// away mid-CGI: the child's output must still be drained and the child
// reaped before the pipe fd is released.
func (s *Session) CloseClient() {
	if s.Fd != -1 {
		unix.Close(s.Fd)
		s.Fd = -1
	}
}

// Destroy closes every fd this session owns. It is safe to call more
// than once; the sentinel -1 prevents a double-close.
func (s *Session) Destroy() {
	if s.Fd != -1 {
		unix.Close(s.Fd)
		s.Fd = -1
	}
	if s.cgiProc != nil {
		s.cgiProc.Close()
		s.cgiProc = nil
	}
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
